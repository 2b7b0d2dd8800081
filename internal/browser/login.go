// File: internal/browser/login.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/config"
)

// Navigator is a Page that can also load URLs and report where it is.
type Navigator interface {
	schemas.Page
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
}

var _ Navigator = (*Session)(nil)

// ErrLoginRejected means the sign in form was submitted but the site kept
// the browser on the sign in page.
var ErrLoginRejected = errors.New("login did not leave the sign in page")

// loginPollInterval is how often the URL is checked after submitting the form.
var loginPollInterval = 250 * time.Millisecond

// Bootstrap signs in and opens the exercise page, leaving nav ready for the
// solve loop.
func Bootstrap(ctx context.Context, nav Navigator, site config.SiteConfig, timeout time.Duration, logger *zap.Logger) error {
	if err := Login(ctx, nav, site, timeout, logger); err != nil {
		return err
	}
	logger.Info("Opening exercise page.", zap.String("url", site.TargetURL))
	if err := nav.Navigate(ctx, site.TargetURL); err != nil {
		return fmt.Errorf("failed to open exercise page: %w", err)
	}
	return nil
}

// Login fills in the sign in form and waits until the browser has left the
// sign in page. Each form control gets up to timeout to appear.
func Login(ctx context.Context, nav Navigator, site config.SiteConfig, timeout time.Duration, logger *zap.Logger) error {
	if site.Username == "" || site.Password == "" {
		return errors.New("username and password are required to sign in")
	}
	log := logger.Named("login")
	sel := site.Selectors

	log.Info("Signing in.", zap.String("url", site.LoginURL), zap.String("username", site.Username))
	if err := nav.Navigate(ctx, site.LoginURL); err != nil {
		return fmt.Errorf("failed to open sign in page: %w", err)
	}

	if err := fillField(ctx, nav, sel.UsernameField, site.Username, timeout); err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if err := fillField(ctx, nav, sel.PasswordField, site.Password, timeout); err != nil {
		return fmt.Errorf("password field: %w", err)
	}

	button, err := nav.WaitClickable(ctx, sel.SignInButton, timeout)
	if err != nil {
		return fmt.Errorf("sign in button %s: %w", sel.SignInButton, err)
	}
	if err := button.Click(ctx); err != nil {
		return fmt.Errorf("failed to submit sign in form: %w", err)
	}

	if err := waitForRedirect(ctx, nav, site.LoginPathMarker, timeout); err != nil {
		return err
	}
	log.Info("Signed in.")
	return nil
}

func fillField(ctx context.Context, nav schemas.Page, sel schemas.Selector, value string, timeout time.Duration) error {
	field, err := nav.WaitClickable(ctx, sel, timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", sel, err)
	}
	if err := field.Clear(ctx); err != nil {
		return err
	}
	return field.Type(ctx, value)
}

// waitForRedirect polls the current URL until it no longer contains marker.
// An empty marker skips the check.
func waitForRedirect(ctx context.Context, nav Navigator, marker string, timeout time.Duration) error {
	if marker == "" {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()

	for {
		current, err := nav.CurrentURL(waitCtx)
		if err == nil && !strings.Contains(current, marker) {
			return nil
		}
		if err != nil && ctx.Err() == nil && waitCtx.Err() == nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: still on %q after %s", ErrLoginRejected, current, timeout)
		case <-ticker.C:
		}
	}
}
