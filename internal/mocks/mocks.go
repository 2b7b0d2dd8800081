// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/ixlbot/api/schemas"
)

// -- Reasoning Service Mock --

// MockReasoningService mocks schemas.ReasoningService.
type MockReasoningService struct {
	mock.Mock
}

var _ schemas.ReasoningService = (*MockReasoningService)(nil)

func (m *MockReasoningService) Upload(ctx context.Context, path string) (schemas.FileHandle, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(schemas.FileHandle), args.Error(1)
}

func (m *MockReasoningService) Generate(ctx context.Context, model, instruction string, file schemas.FileHandle) (string, error) {
	args := m.Called(ctx, model, instruction, file)
	return args.String(0), args.Error(1)
}

func (m *MockReasoningService) Release(ctx context.Context, file schemas.FileHandle) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

// -- Region Shooter Mock --

// MockRegionShooter mocks schemas.RegionShooter.
type MockRegionShooter struct {
	mock.Mock
}

var _ schemas.RegionShooter = (*MockRegionShooter)(nil)

func (m *MockRegionShooter) CaptureRegion(ctx context.Context, region schemas.Region) ([]byte, error) {
	args := m.Called(ctx, region)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// -- Fake Page --

// FakePage is a scriptable in-memory page. Elements are registered per
// selector and every element action is appended to a shared journal, so
// tests can assert the order in which things happened.
type FakePage struct {
	mu       sync.Mutex
	elements map[schemas.Selector]*FakeElement
	journal  []string

	// FindErr, when set, is returned by every Find call.
	FindErr error
	// WaitErr, when set, is returned by every WaitClickable call.
	WaitErr error

	// URLs is consumed one entry per CurrentURL call; the last entry repeats.
	URLs      []string
	Navigated []string
	// NavigateErr, when set, is returned by Navigate.
	NavigateErr error

	FindCalls []schemas.Selector
	WaitCalls []schemas.Selector
	// WaitTimeouts records the timeout passed to each WaitClickable call.
	WaitTimeouts []time.Duration
}

// NewFakePage returns an empty page.
func NewFakePage() *FakePage {
	return &FakePage{elements: make(map[schemas.Selector]*FakeElement)}
}

// Add registers an element under sel and returns it for further scripting.
func (p *FakePage) Add(sel schemas.Selector, name string) *FakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &FakeElement{Name: name, page: p}
	p.elements[sel] = el
	return el
}

// Remove unregisters the element under sel.
func (p *FakePage) Remove(sel schemas.Selector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, sel)
}

// Journal returns a copy of the recorded actions, e.g. "submit:click".
func (p *FakePage) Journal() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.journal...)
}

func (p *FakePage) record(entry string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.journal = append(p.journal, entry)
}

func (p *FakePage) lookup(sel schemas.Selector) (schemas.Element, error) {
	el, ok := p.elements[sel]
	if !ok {
		return nil, schemas.ErrElementNotFound
	}
	return el, nil
}

func (p *FakePage) Find(ctx context.Context, sel schemas.Selector) (schemas.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FindCalls = append(p.FindCalls, sel)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.FindErr != nil {
		return nil, p.FindErr
	}
	return p.lookup(sel)
}

func (p *FakePage) WaitClickable(ctx context.Context, sel schemas.Selector, timeout time.Duration) (schemas.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.WaitCalls = append(p.WaitCalls, sel)
	p.WaitTimeouts = append(p.WaitTimeouts, timeout)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.WaitErr != nil {
		return nil, p.WaitErr
	}
	return p.lookup(sel)
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Navigated = append(p.Navigated, url)
	p.journal = append(p.journal, "navigate:"+url)
	return nil
}

func (p *FakePage) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.URLs) == 0 {
		return "", nil
	}
	current := p.URLs[0]
	if len(p.URLs) > 1 {
		p.URLs = p.URLs[1:]
	}
	return current, nil
}

// FakeElement records the actions performed on it in its page's journal.
type FakeElement struct {
	Name string
	page *FakePage

	// ClickErr, ClearErr and TypeErr are returned by the matching action.
	ClickErr error
	ClearErr error
	TypeErr  error
	// ClickPanic makes Click panic with the given value.
	ClickPanic interface{}

	mu    sync.Mutex
	Value string
}

var _ schemas.Element = (*FakeElement)(nil)

func (e *FakeElement) Click(ctx context.Context) error {
	if e.ClickPanic != nil {
		panic(e.ClickPanic)
	}
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.page.record(e.Name + ":click")
	return nil
}

func (e *FakeElement) Clear(ctx context.Context) error {
	if e.ClearErr != nil {
		return e.ClearErr
	}
	e.mu.Lock()
	e.Value = ""
	e.mu.Unlock()
	e.page.record(e.Name + ":clear")
	return nil
}

func (e *FakeElement) Type(ctx context.Context, text string) error {
	if e.TypeErr != nil {
		return e.TypeErr
	}
	e.mu.Lock()
	e.Value += text
	e.mu.Unlock()
	e.page.record(fmt.Sprintf("%s:type:%s", e.Name, text))
	return nil
}

// Text returns everything typed since the last Clear.
func (e *FakeElement) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value
}
