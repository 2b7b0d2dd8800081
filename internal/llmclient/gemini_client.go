// File: internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/config"
)

const pngMIMEType = "image/png"

// GeminiClient implements schemas.ReasoningService on the Gemini API. Images
// go through the Files API and are referenced by URI.
type GeminiClient struct {
	client *genai.Client
	config config.LLMModelConfig
	logger *zap.Logger
}

var _ schemas.ReasoningService = (*GeminiClient)(nil)

// NewGeminiClient initializes the client. No request is made until first use.
func NewGeminiClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Gemini API Key is required (set IXLBOT_API_KEY or GEMINI_API_KEY)")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: cfg,
		logger: logger.Named("llm_client.gemini"),
	}, nil
}

// Upload sends the PNG at path to the Files API.
func (c *GeminiClient) Upload(ctx context.Context, path string) (schemas.FileHandle, error) {
	file, err := c.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: pngMIMEType})
	if err != nil {
		return schemas.FileHandle{}, fmt.Errorf("gemini file upload failed: %w", err)
	}
	if file.State == genai.FileStateFailed {
		return schemas.FileHandle{}, fmt.Errorf("gemini rejected uploaded file %s", file.Name)
	}

	c.logger.Debug("Uploaded capture.", zap.String("file", file.Name), zap.String("uri", file.URI))
	mime := file.MIMEType
	if mime == "" {
		mime = pngMIMEType
	}
	return schemas.FileHandle{Name: file.Name, URI: file.URI, MIMEType: mime}, nil
}

// Generate asks model to follow instruction for the uploaded image.
func (c *GeminiClient) Generate(ctx context.Context, model, instruction string, file schemas.FileHandle) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(instruction),
		genai.NewPartFromURI(file.URI, file.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	genCfg := &genai.GenerateContentConfig{}
	if t := c.config.Temperature; t != nil {
		genCfg.Temperature = genai.Ptr[float32](*t)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	fields := []zap.Field{zap.String("model", model), zap.Duration("duration", time.Since(start))}
	if usage := resp.UsageMetadata; usage != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", usage.PromptTokenCount),
			zap.Int32("completion_tokens", usage.CandidatesTokenCount),
			zap.Int32("total_tokens", usage.TotalTokenCount))
	}
	c.logger.Info("LLM generation complete (Gemini)", fields...)

	return resp.Text(), nil
}

// Release deletes the uploaded file. Gemini would otherwise keep it for 48h.
func (c *GeminiClient) Release(ctx context.Context, file schemas.FileHandle) error {
	if file.Name == "" {
		return nil
	}
	if _, err := c.client.Files.Delete(ctx, file.Name, nil); err != nil {
		return fmt.Errorf("gemini file delete failed for %s: %w", file.Name, err)
	}
	return nil
}
