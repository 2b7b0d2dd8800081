// File: internal/browser/allocator.go
package browser

import (
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/ixlbot/internal/config"
)

// allocatorFlag is a single Chrome command line switch.
type allocatorFlag struct {
	name  string
	value interface{}
}

// allocatorFlags derives the Chrome switches for cfg on top of chromedp's
// defaults. Kept separate from DefaultAllocatorOptions so it can be inspected.
func allocatorFlags(cfg config.BrowserConfig) []allocatorFlag {
	flags := []allocatorFlag{
		{"headless", cfg.Headless},
		// chromedp hides scrollbars and mutes audio by default; the solver
		// needs the page to render the same way a person would see it.
		{"hide-scrollbars", false},
		{"disable-gpu", cfg.Headless},
		{"disable-dev-shm-usage", true},
		{"no-first-run", true},
		{"no-default-browser-check", true},
	}

	for _, arg := range cfg.Args {
		name, value := parseArg(arg)
		if name == "" {
			continue
		}
		flags = append(flags, allocatorFlag{name, value})
	}
	return flags
}

// parseArg turns "--name=value" or "--name" into a flag pair.
func parseArg(arg string) (string, interface{}) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if arg == "" {
		return "", nil
	}
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

// DefaultAllocatorOptions builds the exec allocator options for a visible,
// full size Chrome window.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+8)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)

	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	return opts
}
