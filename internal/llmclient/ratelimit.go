// File: internal/llmclient/ratelimit.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/ixlbot/api/schemas"
)

// RateLimited throttles the calls that cost quota, Upload and Generate, with
// a token bucket. Release is never throttled so cleanup is not delayed.
type RateLimited struct {
	next    schemas.ReasoningService
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ schemas.ReasoningService = (*RateLimited)(nil)

// NewRateLimited wraps next so that at most perMinute quota calls are made
// per minute, with no bursting.
func NewRateLimited(next schemas.ReasoningService, perMinute float64, logger *zap.Logger) *RateLimited {
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), 1),
		logger:  logger.Named("llm_client.limiter"),
	}
}

func (r *RateLimited) wait(ctx context.Context, op string) error {
	if r.limiter.Tokens() < 1 {
		r.logger.Debug("Waiting for rate limiter.", zap.String("op", op))
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", op, err)
	}
	return nil
}

func (r *RateLimited) Upload(ctx context.Context, path string) (schemas.FileHandle, error) {
	if err := r.wait(ctx, "upload"); err != nil {
		return schemas.FileHandle{}, err
	}
	return r.next.Upload(ctx, path)
}

func (r *RateLimited) Generate(ctx context.Context, model, instruction string, file schemas.FileHandle) (string, error) {
	if err := r.wait(ctx, "generate"); err != nil {
		return "", err
	}
	return r.next.Generate(ctx, model, instruction, file)
}

func (r *RateLimited) Release(ctx context.Context, file schemas.FileHandle) error {
	return r.next.Release(ctx, file)
}
