// File: api/schemas/page.go
package schemas

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned by Page.Find when no node matches a selector.
// It is a normal polling outcome and never a failure on its own.
var ErrElementNotFound = errors.New("element not found")

// ErrBrowserClosed is returned once the browser behind a Page has gone away.
// Nothing can recover from it.
var ErrBrowserClosed = errors.New("browser session closed")

// SelectorKind names the lookup strategy used for a Selector.
type SelectorKind string

const (
	// ByXPath matches an XPath expression against the document.
	ByXPath SelectorKind = "xpath"
	// ByClass matches a single CSS class name.
	ByClass SelectorKind = "class"
	// ByID matches an element id attribute.
	ByID SelectorKind = "id"
	// ByQuery matches an arbitrary CSS selector.
	ByQuery SelectorKind = "query"
)

// Selector identifies an element on the page.
type Selector struct {
	Kind  SelectorKind `mapstructure:"kind" yaml:"kind"`
	Value string       `mapstructure:"value" yaml:"value"`
}

// XPath is shorthand for an XPath selector.
func XPath(expr string) Selector { return Selector{Kind: ByXPath, Value: expr} }

// Class is shorthand for a class name selector.
func Class(name string) Selector { return Selector{Kind: ByClass, Value: name} }

// ID is shorthand for an id selector.
func ID(id string) Selector { return Selector{Kind: ByID, Value: id} }

// String renders the selector for logs.
func (s Selector) String() string {
	return string(s.Kind) + "=" + s.Value
}

// Element is a located node on the current page. Handles are only valid for
// the page state they were found in; callers must not keep them across polls.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
}

// Page is the minimal browser surface the solver needs.
type Page interface {
	// Find looks up an element without waiting. It returns ErrElementNotFound
	// when nothing matches.
	Find(ctx context.Context, sel Selector) (Element, error)
	// WaitClickable waits up to timeout for a visible, enabled element. It
	// returns ErrElementNotFound when the timeout elapses first.
	WaitClickable(ctx context.Context, sel Selector, timeout time.Duration) (Element, error)
}

// Region is a rectangle in CSS pixels, relative to the top left corner of
// the visible viewport whatever the page's scroll position.
type Region struct {
	X      float64 `mapstructure:"x" yaml:"x"`
	Y      float64 `mapstructure:"y" yaml:"y"`
	Width  float64 `mapstructure:"width" yaml:"width"`
	Height float64 `mapstructure:"height" yaml:"height"`
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// RegionShooter produces PNG bytes for a rectangular region of the screen.
type RegionShooter interface {
	CaptureRegion(ctx context.Context, region Region) ([]byte, error)
}
