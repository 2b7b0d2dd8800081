// File: internal/solver/solver.go
package solver

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/capture"
	"github.com/xkilldash9x/ixlbot/internal/config"
	"github.com/xkilldash9x/ixlbot/internal/interpreter"
)

// Prober classifies the current page. Implemented by prober.Prober.
type Prober interface {
	HasRejectionDialog(ctx context.Context) (bool, error)
	FindSubmitControl(ctx context.Context, timeout time.Duration) (schemas.Element, error)
	FindAnswerField(ctx context.Context) (schemas.Element, error)
}

// Capturer screenshots the problem. Implemented by capture.Capturer.
type Capturer interface {
	CaptureRegion(ctx context.Context, region schemas.Region) (*capture.Artifact, error)
}

// Interpreter reads the answer off a capture. Implemented by interpreter.Interpreter.
type Interpreter interface {
	Interpret(ctx context.Context, artifact *capture.Artifact) (string, error)
}

// DefaultErrorPause is used when the configured error pause is not positive.
const DefaultErrorPause = time.Second

// Option configures a Solver.
type Option func(*Solver)

// WithSleeper replaces the real timer used for pauses.
func WithSleeper(s Sleeper) Option {
	return func(sv *Solver) { sv.sleeper = s }
}

// Solver drives the page one step at a time. It is not safe for concurrent use.
type Solver struct {
	prober      Prober
	capturer    Capturer
	interpreter Interpreter
	cfg         config.SolverConfig
	region      schemas.Region
	sleeper     Sleeper
	logger      *zap.Logger
	stats       Stats
}

// New creates a Solver that captures region for every problem it answers.
func New(p Prober, c Capturer, i Interpreter, cfg config.SolverConfig, region schemas.Region, logger *zap.Logger, opts ...Option) *Solver {
	s := &Solver{
		prober:      p,
		capturer:    c,
		interpreter: i,
		cfg:         cfg,
		region:      region,
		sleeper:     timerSleeper{},
		logger:      logger.Named("solver"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns a copy of the counters so far.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Step inspects the page once and acts on what it finds. Checks run in
// priority order: rejection dialog, submit button, answer field, solve.
// A panic inside the step is returned as an error.
func (s *Solver) Step(ctx context.Context) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic during step.",
				zap.Any("panic_value", r),
				zap.String("stack", string(debug.Stack())))
			out = Outcome{State: StateFailed}
			err = &StepError{Stage: "panic", Err: fmt.Errorf("recovered panic: %v", r)}
		}
	}()

	dismissed, err := s.prober.HasRejectionDialog(ctx)
	if err != nil {
		return Outcome{State: StateFailed}, &StepError{Stage: "dialog", Err: err}
	}
	if dismissed {
		s.logger.Info("Dismissed rejection dialog.")
		return Outcome{State: StateDialog}, nil
	}

	submit, err := s.prober.FindSubmitControl(ctx, s.cfg.SubmitTimeout)
	if err != nil {
		return Outcome{State: StateFailed}, &StepError{Stage: "submit", Err: err}
	}
	if submit == nil {
		return Outcome{State: StateNotReady}, nil
	}

	field, err := s.prober.FindAnswerField(ctx)
	if err != nil {
		return Outcome{State: StateFailed}, &StepError{Stage: "field", Err: err}
	}
	if field == nil {
		s.logger.Warn("Submit button present but no known answer field; skipping.")
		return Outcome{State: StateNoField}, nil
	}

	answer, err := s.interpret(ctx)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	answer = interpreter.FormatMathExpr(answer)

	if err := field.Clear(ctx); err != nil {
		return Outcome{State: StateFailed}, &StepError{Stage: "clear", Err: err}
	}
	if err := field.Type(ctx, answer); err != nil {
		return Outcome{State: StateFailed}, &StepError{Stage: "type", Err: err}
	}
	if err := submit.Click(ctx); err != nil {
		return Outcome{State: StateFailed}, &StepError{Stage: "click", Err: err}
	}

	s.logger.Info("Submitted answer.", zap.String("answer", answer))
	return Outcome{State: StateSolved, Answer: answer}, nil
}

// interpret captures the problem and asks for the answer. The capture file
// is gone by the time this returns, whatever happened.
func (s *Solver) interpret(ctx context.Context) (string, error) {
	artifact, err := s.capturer.CaptureRegion(ctx, s.region)
	if err != nil {
		return "", &StepError{Stage: "capture", Err: err}
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			s.logger.Warn("Failed to remove capture.", zap.String("path", artifact.Path), zap.Error(err))
		}
	}()

	answer, err := s.interpreter.Interpret(ctx, artifact)
	if err != nil {
		return "", &StepError{Stage: "interpret", Err: err}
	}
	return answer, nil
}

// Run calls Step until ctx is cancelled or the browser goes away. Recoverable
// errors are logged and followed by the configured pause.
func (s *Solver) Run(ctx context.Context) error {
	s.logger.Info("Solver started.",
		zap.Duration("submit_timeout", s.cfg.SubmitTimeout),
		zap.Duration("error_pause", s.errorPause()))

	for {
		if err := ctx.Err(); err != nil {
			return s.stop(err)
		}

		out, err := s.Step(ctx)
		if err != nil && Classify(ctx, err) == KindFatal {
			s.stats.Steps++
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.stop(ctxErr)
			}
			s.logger.Error("Browser session lost, stopping.", zap.Error(err), zap.Object("stats", s.stats))
			return err
		}
		s.stats.record(out.State)

		if err != nil {
			s.logger.Warn("Step failed, pausing before retry.",
				zap.Error(err),
				zap.Duration("pause", s.errorPause()))
			if err := s.sleeper.Sleep(ctx, s.errorPause()); err != nil {
				return s.stop(err)
			}
			continue
		}

		if out.State == StateNotReady && s.cfg.IdlePause > 0 {
			if err := s.sleeper.Sleep(ctx, s.cfg.IdlePause); err != nil {
				return s.stop(err)
			}
		}
	}
}

// errorPause never lets a persistent failure spin the loop.
func (s *Solver) errorPause() time.Duration {
	if s.cfg.ErrorPause <= 0 {
		return DefaultErrorPause
	}
	return s.cfg.ErrorPause
}

func (s *Solver) stop(cause error) error {
	s.logger.Info("Stopping.", zap.Object("stats", s.stats))
	return cause
}
