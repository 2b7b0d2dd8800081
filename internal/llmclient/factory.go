// File: internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/config"
)

// NewClient creates the reasoning service for the configured provider,
// throttled when requests_per_minute is set.
func NewClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (schemas.ReasoningService, error) {
	var (
		svc schemas.ReasoningService
		err error
	)

	switch cfg.Provider {
	case config.ProviderGemini:
		svc, err = NewGeminiClient(ctx, cfg, logger)
	case config.ProviderOpenAI:
		svc, err = NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenAI)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		svc = NewRateLimited(svc, cfg.RequestsPerMinute, logger)
	}
	return svc, nil
}
