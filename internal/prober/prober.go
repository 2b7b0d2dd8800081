// File: internal/prober/prober.go
package prober

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/config"
)

// DefaultSubmitTimeout bounds the wait for the submit button when the caller
// passes no timeout.
const DefaultSubmitTimeout = 3 * time.Second

// Prober answers questions about the current exercise page. It holds no
// element handles between calls.
type Prober struct {
	page      schemas.Page
	selectors config.SelectorsConfig
	logger    *zap.Logger
}

// New creates a Prober for page using the configured selectors.
func New(page schemas.Page, selectors config.SelectorsConfig, logger *zap.Logger) *Prober {
	return &Prober{
		page:      page,
		selectors: selectors,
		logger:    logger.Named("prober"),
	}
}

// HasRejectionDialog dismisses the "Sorry, incorrect..." feedback dialog if
// it is showing and reports whether it did. A marker without its dismiss
// button counts as no dialog.
func (p *Prober) HasRejectionDialog(ctx context.Context) (bool, error) {
	marker, err := p.find(ctx, p.selectors.RejectionMarker)
	if err != nil || marker == nil {
		return false, err
	}

	button, err := p.find(ctx, p.selectors.DismissButton)
	if err != nil {
		return false, err
	}
	if button == nil {
		p.logger.Debug("Rejection marker present without a dismiss button.")
		return false, nil
	}

	if err := button.Click(ctx); err != nil {
		return false, fmt.Errorf("failed to dismiss rejection dialog: %w", err)
	}
	return true, nil
}

// FindSubmitControl waits up to timeout for a clickable submit button. It
// returns (nil, nil) when none shows up in time.
func (p *Prober) FindSubmitControl(ctx context.Context, timeout time.Duration) (schemas.Element, error) {
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	el, err := p.page.WaitClickable(ctx, p.selectors.SubmitButton, timeout)
	if errors.Is(err, schemas.ErrElementNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("probe for submit button %s: %w", p.selectors.SubmitButton, err)
	}
	return el, nil
}

// FindAnswerField returns the first answer field present, trying the
// configured selectors in order, or (nil, nil) when none is.
func (p *Prober) FindAnswerField(ctx context.Context) (schemas.Element, error) {
	for _, sel := range p.selectors.AnswerFields {
		el, err := p.find(ctx, sel)
		if err != nil {
			return nil, err
		}
		if el != nil {
			p.logger.Debug("Found answer field.", zap.Stringer("selector", sel))
			return el, nil
		}
	}
	return nil, nil
}

// find maps ErrElementNotFound onto a nil element.
func (p *Prober) find(ctx context.Context, sel schemas.Selector) (schemas.Element, error) {
	el, err := p.page.Find(ctx, sel)
	if errors.Is(err, schemas.ErrElementNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("probe for %s: %w", sel, err)
	}
	return el, nil
}
