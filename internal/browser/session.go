// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/config"
)

// Session is a single Chrome window driven over CDP. It implements
// schemas.Page and schemas.RegionShooter.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	// allocCancel stops the Chrome process once the tab is gone.
	allocCancel context.CancelFunc
	logger      *zap.Logger
	cfg         config.BrowserConfig
	// run executes actions against the tab; nil means chromedp.Run.
	run func(ctx context.Context, actions ...chromedp.Action) error

	closeOnce sync.Once
	closeErr  error
}

var (
	_ schemas.Page          = (*Session)(nil)
	_ schemas.RegionShooter = (*Session)(nil)
)

// Launch starts Chrome and opens the tab the session drives. The browser
// lives until Close is called; ctx only bounds the start up.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	log := logger.Named("browser").With(zap.String("session_id", sessionID))

	// The allocator is rooted in Background so an interrupt does not kill
	// Chrome before Close has had a chance to shut it down cleanly.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), DefaultAllocatorOptions(cfg)...)

	sugar := log.Sugar()
	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(sugar.Debugf))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	started := make(chan error, 1)
	go func() {
		// The first Run must use the tab context itself: it allocates the browser.
		started <- chromedp.Run(tabCtx)
	}()

	select {
	case err := <-started:
		if err != nil {
			tabCancel()
			allocCancel()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-ctx.Done():
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser start aborted: %w", ctx.Err())
	}

	log.Info("Browser session started.",
		zap.Bool("headless", cfg.Headless),
		zap.Int("window_width", cfg.WindowWidth),
		zap.Int("window_height", cfg.WindowHeight))

	return &Session{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		logger:      log,
		cfg:         cfg,
	}, nil
}

// Close shuts the browser down. Only the first call does any work; later
// calls return the same result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session.")
		if err := chromedp.Cancel(s.ctx); err != nil && s.ctx.Err() == nil {
			s.closeErr = fmt.Errorf("failed to close browser tab: %w", err)
		}
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}

// runActions executes chromedp actions bounded by both the session lifetime
// and ctx. A closed browser is reported as schemas.ErrBrowserClosed and a
// done ctx as its own error, so callers can tell the two apart.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	run := s.run
	if run == nil {
		run = chromedp.Run
	}
	err := run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("%w: %v", schemas.ErrBrowserClosed, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// waitTimeout is the default bound for element waits and actions.
func (s *Session) waitTimeout() time.Duration {
	if s.cfg.WaitTimeout > 0 {
		return s.cfg.WaitTimeout
	}
	return 10 * time.Second
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	err := s.runActions(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %s", url, navTimeout)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// CurrentURL returns the location of the current document.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := s.runActions(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return location, nil
}

// Find looks up the first element matching sel without waiting for it to
// appear. The lookup itself is bounded by the wait timeout, since chromedp
// keeps retrying while the tab has no document.
func (s *Session) Find(ctx context.Context, sel schemas.Selector) (schemas.Element, error) {
	query, by := toQuery(sel)
	timeout := s.waitTimeout()

	findCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := s.runActions(findCtx, chromedp.Nodes(query, &nodes, by, chromedp.AtLeast(0))); err != nil {
		if findCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("lookup of %s timed out after %s: %w", sel, timeout, err)
		}
		return nil, fmt.Errorf("lookup of %s failed: %w", sel, err)
	}
	if len(nodes) == 0 {
		return nil, schemas.ErrElementNotFound
	}
	return &nodeElement{session: s, node: nodes[0], sel: sel}, nil
}

// WaitClickable polls until sel is visible and enabled, up to timeout.
func (s *Session) WaitClickable(ctx context.Context, sel schemas.Selector, timeout time.Duration) (schemas.Element, error) {
	if timeout <= 0 {
		timeout = s.waitTimeout()
	}
	query, by := toQuery(sel)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := s.runActions(waitCtx,
		chromedp.WaitVisible(query, by),
		chromedp.WaitEnabled(query, by),
		chromedp.Nodes(query, &nodes, by, chromedp.AtLeast(0)),
	)
	if err != nil {
		if waitCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, schemas.ErrElementNotFound
		}
		return nil, fmt.Errorf("waiting for %s failed: %w", sel, err)
	}
	if len(nodes) == 0 {
		// Detached between the visibility check and the lookup.
		return nil, schemas.ErrElementNotFound
	}
	return &nodeElement{session: s, node: nodes[0], sel: sel}, nil
}

// CaptureRegion screenshots region of the visible viewport as PNG. The
// region is shifted by the current scroll offset, since CDP clips are in
// document coordinates.
func (s *Session) CaptureRegion(ctx context.Context, region schemas.Region) ([]byte, error) {
	if region.Empty() {
		return nil, fmt.Errorf("capture region %+v has no area", region)
	}

	captureCtx, cancel := context.WithTimeout(ctx, s.waitTimeout())
	defer cancel()

	var buf []byte
	err := s.runActions(captureCtx, chromedp.ActionFunc(func(c context.Context) error {
		_, _, _, _, cssVisualViewport, _, err := page.GetLayoutMetrics().Do(c)
		if err != nil {
			return fmt.Errorf("failed to read layout metrics: %w", err)
		}
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithFromSurface(true).
			WithClip(documentClip(region, cssVisualViewport)).
			Do(c)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("screenshot of region failed: %w", err)
	}
	return buf, nil
}

// documentClip translates a viewport region into the document coordinates
// Page.captureScreenshot expects.
func documentClip(region schemas.Region, visual *page.VisualViewport) *page.Viewport {
	clip := &page.Viewport{
		X:      region.X,
		Y:      region.Y,
		Width:  region.Width,
		Height: region.Height,
		Scale:  1,
	}
	if visual != nil {
		clip.X += visual.PageX
		clip.Y += visual.PageY
	}
	return clip
}

// toQuery maps a selector onto a chromedp query and strategy.
func toQuery(sel schemas.Selector) (string, chromedp.QueryOption) {
	switch sel.Kind {
	case schemas.ByXPath:
		return sel.Value, chromedp.BySearch
	case schemas.ByClass:
		return fmt.Sprintf("[class~=%q]", sel.Value), chromedp.ByQuery
	case schemas.ByID:
		return fmt.Sprintf("[id=%q]", sel.Value), chromedp.ByQuery
	default:
		return sel.Value, chromedp.ByQuery
	}
}
