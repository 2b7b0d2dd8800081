// File: internal/solver/state.go
package solver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/ixlbot/api/schemas"
)

// State is what a single step found on the page.
type State int

const (
	// StateFailed means the step returned an error.
	StateFailed State = iota
	// StateDialog means a rejection dialog was dismissed.
	StateDialog
	// StateNotReady means no submit button showed up in time.
	StateNotReady
	// StateNoField means a submit button was found but no answer field.
	StateNoField
	// StateSolved means an answer was typed and submitted.
	StateSolved
)

func (s State) String() string {
	switch s {
	case StateFailed:
		return "failed"
	case StateDialog:
		return "dialog"
	case StateNotReady:
		return "not_ready"
	case StateNoField:
		return "no_field"
	case StateSolved:
		return "solved"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the result of one Step.
type Outcome struct {
	State State
	// Answer is the formatted text that was submitted, if any.
	Answer string
}

// ErrorKind splits step errors into those the loop survives and those it does not.
type ErrorKind int

const (
	KindRecoverable ErrorKind = iota
	KindFatal
)

func (k ErrorKind) String() string {
	if k == KindFatal {
		return "fatal"
	}
	return "recoverable"
}

// StepError records which stage of a step failed.
type StepError struct {
	Stage string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Classify decides whether err ends the run. Only an interrupted run
// context or a lost browser is fatal; everything else is retried.
func Classify(ctx context.Context, err error) ErrorKind {
	if err == nil {
		return KindRecoverable
	}
	// Whatever failed, an interrupted run does not go on.
	if ctx.Err() != nil {
		return KindFatal
	}
	if errors.Is(err, schemas.ErrBrowserClosed) {
		return KindFatal
	}
	return KindRecoverable
}

// Stats counts what a run did.
type Stats struct {
	Steps            int
	DialogsDismissed int
	AnswersSubmitted int
	SkippedQuestions int
	NotReady         int
	RecoveredErrors  int
}

// MarshalLogObject lets Stats be logged with zap.Object.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("steps", s.Steps)
	enc.AddInt("dialogs_dismissed", s.DialogsDismissed)
	enc.AddInt("answers_submitted", s.AnswersSubmitted)
	enc.AddInt("skipped_questions", s.SkippedQuestions)
	enc.AddInt("not_ready", s.NotReady)
	enc.AddInt("recovered_errors", s.RecoveredErrors)
	return nil
}

func (s *Stats) record(state State) {
	s.Steps++
	switch state {
	case StateDialog:
		s.DialogsDismissed++
	case StateNotReady:
		s.NotReady++
	case StateNoField:
		s.SkippedQuestions++
	case StateSolved:
		s.AnswersSubmitted++
	case StateFailed:
		s.RecoveredErrors++
	}
}
