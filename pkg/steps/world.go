// File: pkg/steps/world.go

// Package steps is the library of human readable browser steps ("I fill
// in X with Y", "I should see Z") for godog suites. Each step is a thin
// translation onto pkg/fields, pkg/query, pkg/wait and pkg/selector.
package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/selector"
	"github.com/xkilldash9x/webstep/pkg/wait"
)

const closeTimeout = 10 * time.Second

// Opener starts a browser session for one scenario.
type Opener func(ctx context.Context) (browser.Driver, error)

// Config carries the settings steps read.
type Config struct {
	// Pages maps aliases used in steps to URLs.
	Pages map[string]string
	Wait  wait.Config
	// HelperScript replaces the built in `$` selector helper.
	HelperScript string
}

// AssertionError is a step expectation that did not hold.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return e.Message }

func failf(format string, args ...any) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// World is the state of one scenario: its browser session and settings.
type World struct {
	open   Opener
	cfg    Config
	logger *zap.Logger

	driver browser.Driver
	finder *selector.Finder
}

// NewWorld creates the state for one scenario. The session is opened by
// Start.
func NewWorld(open Opener, cfg Config, logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Wait == (wait.Config{}) {
		cfg.Wait = wait.DefaultConfig()
	}
	return &World{open: open, cfg: cfg, logger: logger}
}

// Driver returns the scenario's session, or nil before Start.
func (w *World) Driver() browser.Driver { return w.driver }

// Start opens the browser session.
func (w *World) Start(ctx context.Context) error {
	d, err := w.open(ctx)
	if err != nil {
		return fmt.Errorf("open browser session: %w", err)
	}
	w.attach(d)
	return nil
}

func (w *World) attach(d browser.Driver) {
	w.driver = d
	opts := []selector.Option{selector.WithLogger(w.logger)}
	if w.cfg.HelperScript != "" {
		opts = append(opts, selector.WithHelperScript(w.cfg.HelperScript))
	}
	w.finder = selector.New(d, opts...)
}

// Stop closes the session. It runs after a failed or canceled scenario
// too, so it does not use the scenario's context.
func (w *World) Stop(ctx context.Context) error {
	if w.driver == nil {
		return nil
	}
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	err := w.driver.Close(closeCtx)
	w.driver, w.finder = nil, nil
	return err
}

// lookupURL resolves a page alias, leaving anything else as is.
func (w *World) lookupURL(u string) string {
	if target, ok := w.cfg.Pages[u]; ok {
		return target
	}
	return u
}

func (w *World) within(seconds int) wait.Config {
	return w.cfg.Wait.WithTimeout(time.Duration(seconds) * time.Second)
}

// once is a wait that probes exactly one time.
func (w *World) once() wait.Config {
	return w.cfg.Wait.WithTimeout(0)
}

// first returns the first match of xpath, failing when there is none.
func (w *World) first(ctx context.Context, xpath string) (browser.Element, error) {
	els, err := w.driver.FindElements(ctx, xpath)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.NewElementNotFoundError(xpath)
	}
	return els[0], nil
}

// mustExist fails unless xpath matches something.
func (w *World) mustExist(ctx context.Context, xpath string) error {
	_, err := w.first(ctx, xpath)
	var nf *browser.ElementNotFoundError
	if errors.As(err, &nf) {
		return failf("expected an element matching %s", xpath)
	}
	return err
}
