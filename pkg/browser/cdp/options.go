// File: pkg/browser/cdp/options.go
package cdp

import (
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Options configures the Chrome process and the tabs opened in it.
type Options struct {
	Headless bool

	// Stealth hides the usual automation fingerprints (navigator.webdriver,
	// the automation infobar, headless user agent).
	Stealth bool

	// Args are extra command line switches, with or without the leading
	// dashes, optionally carrying a value after "=".
	Args []string

	ExecPath     string
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	Languages    []string

	// OperationTimeout bounds every individual protocol round trip.
	OperationTimeout time.Duration
}

// flags computes the command line switches for o. A false value removes
// a switch that chromedp would otherwise pass.
func flags(o Options) map[string]any {
	f := map[string]any{
		"headless":                 o.Headless,
		"no-first-run":             true,
		"no-default-browser-check": true,
		"disable-extensions":       true,
		"disable-gpu":              o.Headless,
	}
	if o.Stealth {
		f["enable-automation"] = false
		f["disable-blink-features"] = "AutomationControlled"
	}
	if runtime.GOOS == "linux" {
		f["no-sandbox"] = true
		f["disable-dev-shm-usage"] = true
		f["disable-setuid-sandbox"] = true
	}
	for _, arg := range o.Args {
		name, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if found {
			f[name] = value
		} else {
			f[name] = true
		}
	}
	return f
}

// AllocatorOptions builds the exec allocator options for o on top of
// chromedp's defaults.
func AllocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range flags(o) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	if o.WindowWidth > 0 && o.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(o.WindowWidth, o.WindowHeight))
	}
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	return opts
}
