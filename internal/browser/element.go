// File: internal/browser/element.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
)

// nodeElement is a DOM node resolved by a Session. Actions address the node
// by id, so a handle goes stale once the page re-renders.
type nodeElement struct {
	session *Session
	node    *cdp.Node
	sel     schemas.Selector
}

var _ schemas.Element = (*nodeElement)(nil)

func (e *nodeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

// Click scrolls the node into view and clicks it.
func (e *nodeElement) Click(ctx context.Context) error {
	e.session.logger.Debug("Clicking element", zap.Stringer("selector", e.sel))

	clickCtx, cancel := context.WithTimeout(ctx, e.session.waitTimeout())
	defer cancel()

	err := e.session.runActions(clickCtx,
		chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID),
		chromedp.Click(e.ids(), chromedp.ByNodeID),
	)
	if err != nil {
		return fmt.Errorf("click action failed for %s: %w", e.sel, err)
	}
	return nil
}

// Clear empties the value of an input node.
func (e *nodeElement) Clear(ctx context.Context) error {
	clearCtx, cancel := context.WithTimeout(ctx, e.session.waitTimeout())
	defer cancel()

	if err := e.session.runActions(clearCtx, chromedp.Clear(e.ids(), chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("clear action failed for %s: %w", e.sel, err)
	}
	return nil
}

// Type sends text to the node as key events.
func (e *nodeElement) Type(ctx context.Context, text string) error {
	e.session.logger.Debug("Typing into element",
		zap.Stringer("selector", e.sel),
		zap.Int("text_length", len(text)))

	// Long answers take longer to key in.
	timeout := e.session.waitTimeout() + time.Duration(len(text))*50*time.Millisecond
	typeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := e.session.runActions(typeCtx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("type action failed for %s: %w", e.sel, err)
	}
	return nil
}
