// File: internal/llmclient/openai_client.go
package llmclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/config"
)

// OpenAIClient implements schemas.ReasoningService against any OpenAI
// compatible chat completions endpoint. There is no remote file store: the
// image travels inline as a data URL.
type OpenAIClient struct {
	client openai.Client
	config config.LLMModelConfig
	logger *zap.Logger
}

var _ schemas.ReasoningService = (*OpenAIClient)(nil)

// NewOpenAIClient initializes the client. Endpoint, when set, replaces the
// default base URL so local or proxied deployments can be used.
func NewOpenAIClient(cfg config.LLMModelConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required (set IXLBOT_API_KEY or OPENAI_API_KEY)")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retrying is the caller's decision.
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.APITimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.APITimeout))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		config: cfg,
		logger: logger.Named("llm_client.openai"),
	}, nil
}

// Upload reads the PNG at path and encodes it as a data URL.
func (c *OpenAIClient) Upload(ctx context.Context, path string) (schemas.FileHandle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schemas.FileHandle{}, fmt.Errorf("failed to read capture %s: %w", path, err)
	}
	uri := "data:" + pngMIMEType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return schemas.FileHandle{Name: path, URI: uri, MIMEType: pngMIMEType}, nil
}

// Generate sends instruction and the image in a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, model, instruction string, file schemas.FileHandle) (string, error) {
	if !strings.HasPrefix(file.URI, "data:") {
		return "", fmt.Errorf("openai provider needs an inline image, got %q", file.Name)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(instruction),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: file.URI}),
			}),
		},
	}
	if t := c.config.Temperature; t != nil {
		params.Temperature = openai.Float(float64(*t))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai API returned no choices")
	}

	c.logger.Info("LLM generation complete (OpenAI)",
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// Release is a no-op: nothing is stored remotely.
func (c *OpenAIClient) Release(ctx context.Context, file schemas.FileHandle) error {
	return nil
}
