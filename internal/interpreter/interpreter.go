// File: internal/interpreter/interpreter.go
package interpreter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/capture"
	"github.com/xkilldash9x/ixlbot/internal/config"
)

// releaseTimeout bounds the best effort cleanup of a remote upload.
const releaseTimeout = 10 * time.Second

// Kind says which stage of an interpretation failed.
type Kind string

const (
	KindUpload   Kind = "upload"
	KindGenerate Kind = "generate"
	KindEmpty    Kind = "empty"
)

// Error is returned by Interpret for every failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("interpretation failed (%s)", e.Kind)
	}
	return fmt.Sprintf("interpretation failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Interpreter turns a captured problem into an answer string.
type Interpreter struct {
	service     schemas.ReasoningService
	model       string
	instruction string
	timeout     time.Duration
	logger      *zap.Logger
}

// New creates an Interpreter that asks cfg.Model through service.
func New(service schemas.ReasoningService, cfg config.LLMModelConfig, logger *zap.Logger) *Interpreter {
	instruction := cfg.Instruction
	if instruction == "" {
		instruction = config.DefaultInstruction
	}
	return &Interpreter{
		service:     service,
		model:       cfg.Model,
		instruction: instruction,
		timeout:     cfg.APITimeout,
		logger:      logger.Named("interpreter"),
	}
}

// Interpret uploads the artifact, asks for the answer and returns it trimmed
// of whitespace and markdown.
// It does not retry.
func (i *Interpreter) Interpret(ctx context.Context, artifact *capture.Artifact) (string, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	handle, err := i.service.Upload(ctx, artifact.Path)
	if err != nil {
		return "", &Error{Kind: KindUpload, Err: err}
	}
	defer i.release(ctx, handle)

	text, err := i.service.Generate(ctx, i.model, i.instruction, handle)
	if err != nil {
		return "", &Error{Kind: KindGenerate, Err: err}
	}

	answer := cleanAnswer(text)
	if answer == "" {
		return "", &Error{Kind: KindEmpty}
	}

	i.logger.Debug("Interpreted problem.", zap.String("artifact_id", artifact.ID), zap.String("answer", answer))
	return answer, nil
}

// release frees the remote upload even when ctx has already expired.
func (i *Interpreter) release(ctx context.Context, handle schemas.FileHandle) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := i.service.Release(releaseCtx, handle); err != nil {
		i.logger.Warn("Failed to release uploaded capture.", zap.String("file", handle.Name), zap.Error(err))
	}
}
