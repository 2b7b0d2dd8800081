// File: cmd/solve.go
package cmd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/browser"
	"github.com/xkilldash9x/ixlbot/internal/capture"
	"github.com/xkilldash9x/ixlbot/internal/config"
	"github.com/xkilldash9x/ixlbot/internal/interpreter"
	"github.com/xkilldash9x/ixlbot/internal/llmclient"
	"github.com/xkilldash9x/ixlbot/internal/observability"
	"github.com/xkilldash9x/ixlbot/internal/prober"
	"github.com/xkilldash9x/ixlbot/internal/solver"
)

// Indirections for tests.
var (
	newReasoningService = llmclient.NewClient
	launchBrowser       = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (solveSession, error) {
		return browser.Launch(ctx, cfg, logger)
	}
)

// solveSession is the browser surface the solve command drives.
type solveSession interface {
	browser.Navigator
	schemas.RegionShooter
	Close() error
}

func newSolveCmd() *cobra.Command {
	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "Sign in and answer questions on an exercise page until interrupted",
		Long: `Opens Chrome, signs in to IXL and keeps answering the questions of the
given exercise page. Username, password and the exercise URL are asked for
unless they come from flags, the config file or the environment
(IXLBOT_USERNAME, IXLBOT_PASSWORD). Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runSolve(ctx, cmd, cfg, observability.GetLogger())
		},
	}

	solveCmd.Flags().String("url", "", "exercise page URL (overrides site.target_url)")
	solveCmd.Flags().StringP("username", "u", "", "IXL username (overrides site.username)")
	solveCmd.Flags().Bool("headless", false, "run Chrome without a window")
	solveCmd.Flags().String("provider", "", "reasoning provider: gemini or openai")
	solveCmd.Flags().String("model", "", "model identifier sent to the provider")
	return solveCmd
}

// runSolve wires the components together and drives the solve loop. The
// browser is closed exactly once on the way out, however the run ends.
func runSolve(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) error {
	service, err := newReasoningService(ctx, cfg.Agent.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to create reasoning service: %w", err)
	}

	site, err := completeSite(cfg.Site, newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	session, err := launchBrowser(ctx, cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("Error while closing browser.", zap.Error(closeErr))
		}
	}()

	if err := browser.Bootstrap(ctx, session, site, cfg.Browser.NavigationTimeout, logger); err != nil {
		return fmt.Errorf("session bootstrap failed: %w", err)
	}

	s := solver.New(
		prober.New(session, site.Selectors, logger),
		capture.New(session, cfg.Capture.TempDir, logger),
		interpreter.New(service, cfg.Agent.LLM, logger),
		cfg.Solver,
		cfg.Capture.Region,
		logger,
	)
	return s.Run(ctx)
}

// completeSite fills in whatever credentials or target the configuration
// left empty by asking the operator. cfg is not modified.
func completeSite(site config.SiteConfig, p *prompter) (config.SiteConfig, error) {
	var err error
	if site.Username == "" {
		if site.Username, err = required(p.Line, "Username: "); err != nil {
			return site, err
		}
	}
	if site.Password == "" {
		if site.Password, err = required(p.Secret, "Password: "); err != nil {
			return site, err
		}
	}
	if site.TargetURL == "" {
		if site.TargetURL, err = required(p.Line, "Exercise URL: "); err != nil {
			return site, err
		}
	}

	u, err := url.Parse(site.TargetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return site, fmt.Errorf("invalid exercise URL %q", site.TargetURL)
	}
	return site, nil
}
