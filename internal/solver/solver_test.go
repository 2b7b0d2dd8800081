// File: internal/solver/solver_test.go
package solver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/interpreter"
	"github.com/xkilldash9x/ixlbot/internal/mocks"
)

// -- Step --

func TestStep_DismissesRejectionDialog(t *testing.T) {
	f := newFixture(t)
	f.rejection()
	f.question()

	out, err := f.solver.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDialog, out.State)

	assert.Equal(t, []string{"got-it:click"}, f.page.Journal(), "nothing but the dismissal happens in this step")
	assert.Zero(t, f.interpreter.calls())
	f.shooter.AssertNotCalled(t, "CaptureRegion", mock.Anything, mock.Anything)
	assert.Empty(t, f.page.WaitCalls, "the submit probe is not reached")
}

func TestStep_NotReadyWithoutSubmit(t *testing.T) {
	f := newFixture(t)
	f.page.Add(schemas.Class("fillIn"), "fill")

	out, err := f.solver.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNotReady, out.State)

	assert.Empty(t, f.page.Journal())
	assert.Zero(t, f.interpreter.calls())
	f.shooter.AssertNotCalled(t, "CaptureRegion", mock.Anything, mock.Anything)
	assert.Equal(t, []time.Duration{3 * time.Second}, f.page.WaitTimeouts)
}

func TestStep_NoKnownField(t *testing.T) {
	f := newFixture(t)
	f.page.Add(f.selectors.SubmitButton, "submit")

	out, err := f.solver.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNoField, out.State)

	assert.Empty(t, f.page.Journal(), "nothing is submitted")
	assert.Zero(t, f.interpreter.calls())
	warnings := f.logs.FilterMessage("Submit button present but no known answer field; skipping.").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "warn", warnings[0].Level.String())
}

func TestStep_SolvesQuestion(t *testing.T) {
	f := newFixture(t)
	_, field := f.question()

	out, err := f.solver.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSolved, out.State)
	assert.Equal(t, "3^2 ", out.Answer)

	assert.Equal(t, []string{
		"fill:clear",
		"fill:type:3^2 ",
		"submit:click",
	}, f.page.Journal())
	assert.Equal(t, "3^2 ", field.Text())

	require.Equal(t, 1, f.interpreter.calls())
	assert.True(t, f.interpreter.existed[0], "the interpreter sees the capture")
	assert.Empty(t, f.captureFilesLeft(t), "the capture is removed afterwards")
	f.shooter.AssertCalled(t, "CaptureRegion", mock.Anything, testRegion)
}

func TestStep_PrefersProxyInput(t *testing.T) {
	f := newFixture(t)
	f.question()
	f.page.Add(schemas.Class("proxy-input"), "proxy")

	out, err := f.solver.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSolved, out.State)
	assert.Equal(t, []string{"proxy:clear", "proxy:type:3^2 ", "submit:click"}, f.page.Journal())
}

func TestStep_InterpreterFailure(t *testing.T) {
	f := newFixture(t)
	f.question()
	f.interpreter.err = &interpreter.Error{Kind: interpreter.KindGenerate, Err: errors.New("503 overloaded")}

	out, err := f.solver.Step(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, out.State)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "interpret", stepErr.Stage)
	var interpErr *interpreter.Error
	assert.ErrorAs(t, err, &interpErr)

	assert.Empty(t, f.page.Journal(), "no answer is typed")
	assert.Empty(t, f.captureFilesLeft(t), "the capture is removed on failure too")
	assert.Equal(t, KindRecoverable, Classify(context.Background(), err))
}

func TestStep_CaptureFailure(t *testing.T) {
	f := newFixture(t)
	f.question()
	f.shooter.ExpectedCalls = nil
	f.shooter.On("CaptureRegion", mock.Anything, mock.Anything).Return(nil, errors.New("screenshot timed out"))

	_, err := f.solver.Step(context.Background())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "capture", stepErr.Stage)
	assert.Zero(t, f.interpreter.calls())
}

func TestStep_ActionFailures(t *testing.T) {
	tests := []struct {
		stage string
		setup func(submit, field *mocks.FakeElement)
	}{
		{"clear", func(_, field *mocks.FakeElement) { field.ClearErr = errors.New("stale node") }},
		{"type", func(_, field *mocks.FakeElement) { field.TypeErr = errors.New("stale node") }},
		{"click", func(submit, _ *mocks.FakeElement) { submit.ClickErr = errors.New("not clickable") }},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			f := newFixture(t)
			submit, field := f.question()
			tt.setup(submit, field)

			out, err := f.solver.Step(context.Background())
			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tt.stage, stepErr.Stage)
			assert.Equal(t, StateFailed, out.State)
			assert.Empty(t, f.captureFilesLeft(t))
		})
	}
}

func TestStep_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	f.question()
	f.interpreter.panicV = "index out of range"

	out, err := f.solver.Step(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.Contains(t, err.Error(), "recovered panic: index out of range")
	assert.Empty(t, f.captureFilesLeft(t), "the capture is removed even after a panic")
	assert.Equal(t, 1, f.logs.FilterMessage("Recovered from panic during step.").Len())
}

func TestStep_ProbeErrorsAreWrapped(t *testing.T) {
	f := newFixture(t)
	f.page.FindErr = fmt.Errorf("lookup failed: %w", schemas.ErrBrowserClosed)

	out, err := f.solver.Step(context.Background())
	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, err, schemas.ErrBrowserClosed)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "dialog", stepErr.Stage)
}

// -- Run --

func TestRun_StopsOnCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.solver.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.solver.Stats().Steps, "a cancelled run takes no step")
	assert.Equal(t, 1, f.logs.FilterMessage("Stopping.").Len())
}

func TestRun_ContinuesAfterInterpreterFailure(t *testing.T) {
	f := newFixture(t)
	f.question()
	f.interpreter.err = errors.New("model unavailable")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sleeper.cancel = cancel
	f.sleeper.cancelAfter = 2

	err := f.solver.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 2, f.interpreter.calls(), "the step after the pause runs again")
	assert.Equal(t, []time.Duration{time.Second, time.Second}, f.sleeper.recorded())
	assert.Equal(t, 2, f.solver.Stats().RecoveredErrors)
	assert.Empty(t, f.captureFilesLeft(t))

	warnings := f.logs.FilterMessage("Step failed, pausing before retry.").All()
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0].ContextMap()["error"], "model unavailable")
}

func TestRun_SolvesUntilInterrupted(t *testing.T) {
	f := newFixture(t)
	f.question()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The operator interrupts while the third answer is being worked out.
	calls := 0
	f.solver.interpreter = interpreterFunc(func(ctx context.Context) (string, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return "1/2", nil
	})

	err := f.solver.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	stats := f.solver.Stats()
	assert.Equal(t, 3, stats.Steps)
	assert.Equal(t, 3, stats.AnswersSubmitted)
	assert.Empty(t, f.sleeper.recorded(), "successful steps do not pause")
}

func TestRun_NotReadyDoesNotPauseByDefault(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probes := 0
	f.solver.prober = &hookedProber{Prober: f.solver.prober, before: func() {
		probes++
		if probes == 5 {
			cancel()
		}
	}}

	err := f.solver.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.sleeper.recorded())
	stats := f.solver.Stats()
	assert.Equal(t, 4, stats.NotReady)
	assert.Equal(t, 5, stats.Steps)
	assert.Zero(t, stats.RecoveredErrors, "the interrupted step is not a recovered error")
}

func TestRun_IdlePause(t *testing.T) {
	f := newFixture(t)
	f.solver.cfg.IdlePause = 250 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sleeper.cancel = cancel
	f.sleeper.cancelAfter = 3

	err := f.solver.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}, f.sleeper.recorded())
}

func TestRun_NonPositiveErrorPauseUsesDefault(t *testing.T) {
	for _, pause := range []time.Duration{0, -time.Second} {
		t.Run(pause.String(), func(t *testing.T) {
			f := newFixture(t)
			f.question()
			f.interpreter.err = errors.New("model unavailable")
			f.solver.cfg.ErrorPause = pause

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			f.sleeper.cancel = cancel
			f.sleeper.cancelAfter = 3

			assert.ErrorIs(t, f.solver.Run(ctx), context.Canceled)
			assert.Equal(t, []time.Duration{DefaultErrorPause, DefaultErrorPause, DefaultErrorPause}, f.sleeper.recorded(),
				"a failing step never retries without a pause")
		})
	}
}

func TestRun_BrowserClosedIsFatal(t *testing.T) {
	f := newFixture(t)
	f.page.FindErr = fmt.Errorf("lookup failed: %w", schemas.ErrBrowserClosed)

	err := f.solver.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrBrowserClosed)
	assert.Empty(t, f.sleeper.recorded(), "no pause before giving up")
	assert.Equal(t, 1, f.logs.FilterMessage("Browser session lost, stopping.").Len())
}

func TestRun_TimerSleeper(t *testing.T) {
	f := newFixture(t)
	f.question()
	f.interpreter.err = errors.New("flaky")
	f.solver.sleeper = timerSleeper{}
	f.solver.cfg.ErrorPause = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := f.solver.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, f.interpreter.calls(), 2)
}

// -- Classify --

func TestClassify(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, KindRecoverable, Classify(live, nil))
	assert.Equal(t, KindRecoverable, Classify(live, errors.New("stale element")))
	assert.Equal(t, KindRecoverable, Classify(live, context.DeadlineExceeded), "an operation timeout is not an interrupt")
	assert.Equal(t, KindRecoverable,
		Classify(live, &StepError{Stage: "dialog", Err: fmt.Errorf("lookup of class=fillIn timed out after 10s: %w", context.DeadlineExceeded)}),
		"a stalled lookup is retried after the pause")
	assert.Equal(t, KindFatal, Classify(live, &StepError{Stage: "click", Err: schemas.ErrBrowserClosed}))
	assert.Equal(t, KindFatal, Classify(cancelled, context.Canceled))
	assert.Equal(t, KindFatal, Classify(cancelled, errors.New("anything while interrupted")))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "dialog", StateDialog.String())
	assert.Equal(t, "not_ready", StateNotReady.String())
	assert.Equal(t, "no_field", StateNoField.String())
	assert.Equal(t, "solved", StateSolved.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.Equal(t, "fatal", KindFatal.String())
}
