// File: internal/solver/helpers_test.go
package solver

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/capture"
	"github.com/xkilldash9x/ixlbot/internal/config"
	"github.com/xkilldash9x/ixlbot/internal/mocks"
	"github.com/xkilldash9x/ixlbot/internal/prober"
)

var testRegion = schemas.Region{X: 100, Y: 200, Width: 1400, Height: 800}

// stubInterpreter answers with a fixed result and remembers which capture
// files it was shown and whether they existed at the time.
type stubInterpreter struct {
	mu      sync.Mutex
	answer  string
	err     error
	panicV  interface{}
	paths   []string
	existed []bool
}

func (s *stubInterpreter) Interpret(ctx context.Context, artifact *capture.Artifact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, statErr := os.Stat(artifact.Path)
	s.paths = append(s.paths, artifact.Path)
	s.existed = append(s.existed, statErr == nil)
	if s.panicV != nil {
		panic(s.panicV)
	}
	return s.answer, s.err
}

func (s *stubInterpreter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// fakeSleeper records pauses instead of sleeping. When cancelAfter is
// positive it cancels the run after that many pauses.
type fakeSleeper struct {
	mu          sync.Mutex
	pauses      []time.Duration
	cancelAfter int
	cancel      context.CancelFunc
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.pauses = append(f.pauses, d)
	n := len(f.pauses)
	f.mu.Unlock()
	if f.cancelAfter > 0 && n >= f.cancelAfter && f.cancel != nil {
		f.cancel()
	}
	return ctx.Err()
}

func (f *fakeSleeper) recorded() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.pauses...)
}

// fixture wires a real prober and capturer to a fake page and a mocked
// screenshot source.
type fixture struct {
	page        *mocks.FakePage
	selectors   config.SelectorsConfig
	shooter     *mocks.MockRegionShooter
	interpreter *stubInterpreter
	sleeper     *fakeSleeper
	logs        *observer.ObservedLogs
	solver      *Solver
	tempDir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.NewDefaultConfig()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	f := &fixture{
		page:        mocks.NewFakePage(),
		selectors:   cfg.Site.Selectors,
		shooter:     new(mocks.MockRegionShooter),
		interpreter: &stubInterpreter{answer: "3^2"},
		sleeper:     &fakeSleeper{},
		logs:        logs,
		tempDir:     t.TempDir(),
	}
	f.shooter.On("CaptureRegion", mock.Anything, testRegion).Return([]byte("\x89PNG\r\n\x1a\nproblem"), nil).Maybe()

	f.solver = New(
		prober.New(f.page, f.selectors, logger),
		capture.New(f.shooter, f.tempDir, logger),
		f.interpreter,
		cfg.Solver,
		testRegion,
		logger,
		WithSleeper(f.sleeper),
	)
	return f
}

// question puts a submit button and a fillIn field on the page.
func (f *fixture) question() (submit, field *mocks.FakeElement) {
	submit = f.page.Add(f.selectors.SubmitButton, "submit")
	field = f.page.Add(schemas.Class("fillIn"), "fill")
	return submit, field
}

// rejection puts the "Sorry, incorrect..." dialog on the page.
func (f *fixture) rejection() *mocks.FakeElement {
	f.page.Add(f.selectors.RejectionMarker, "marker")
	return f.page.Add(f.selectors.DismissButton, "got-it")
}

func (f *fixture) captureFilesLeft(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(f.tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	return entries
}

// interpreterFunc adapts a function to Interpreter.
type interpreterFunc func(ctx context.Context) (string, error)

func (f interpreterFunc) Interpret(ctx context.Context, _ *capture.Artifact) (string, error) {
	return f(ctx)
}

// hookedProber runs before ahead of every dialog probe, i.e. once per step.
type hookedProber struct {
	Prober
	before func()
}

func (h *hookedProber) HasRejectionDialog(ctx context.Context) (bool, error) {
	h.before()
	return h.Prober.HasRejectionDialog(ctx)
}
