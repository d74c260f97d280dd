// File: pkg/selector/selector.go

// Package selector evaluates jQuery style `$("...")` selectors. Backends
// with native CSS support answer directly; everything else runs the
// selector through the page's `$`, installing a minimal helper the first
// time a call finds the page without one.
package selector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/shim"
)

const (
	findScript    = "return $(arguments[0]).get();"
	parentsScript = "return $(arguments[0]).parent().get();"
)

// Finder resolves selectors against one driver.
type Finder struct {
	d      browser.Driver
	helper string
	logger *zap.Logger
}

// Option configures a Finder.
type Option func(*Finder)

// WithHelperScript replaces the embedded `$` helper with src.
func WithHelperScript(src string) Option {
	return func(f *Finder) { f.helper = src }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Finder) { f.logger = l }
}

func New(d browser.Driver, opts ...Option) *Finder {
	f := &Finder{d: d, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find returns the elements matching selector.
func (f *Finder) Find(ctx context.Context, selector string) ([]browser.Element, error) {
	if sq, ok := f.d.(browser.SelectorQuerier); ok {
		return sq.FindBySelector(ctx, selector)
	}
	return f.script(ctx, findScript, selector)
}

// Parents returns the distinct parents of the elements matching selector.
func (f *Finder) Parents(ctx context.Context, selector string) ([]browser.Element, error) {
	if sq, ok := f.d.(browser.SelectorQuerier); ok {
		return sq.FindParentsBySelector(ctx, selector)
	}
	return f.script(ctx, parentsScript, selector)
}

// script runs one selector script. When the page reports that `$` is
// missing, the helper is injected and the call is retried exactly once;
// any other error is returned untouched.
func (f *Finder) script(ctx context.Context, script, selector string) ([]browser.Element, error) {
	els, err := f.d.ScriptElements(ctx, script, selector)
	if err == nil || !browser.IsHelperMissing(err) {
		return els, err
	}

	f.logger.Info("Page has no selector helper, injecting one.", zap.String("selector", selector))
	if err := f.Inject(ctx); err != nil {
		return nil, err
	}
	return f.d.ScriptElements(ctx, script, selector)
}

// Inject installs the selector helper into the current page.
func (f *Finder) Inject(ctx context.Context) error {
	src := f.helper
	if src == "" {
		var err error
		if src, err = shim.SelectorHelper(); err != nil {
			return err
		}
	}
	if _, err := f.d.ExecuteScript(ctx, src); err != nil {
		return fmt.Errorf("inject selector helper: %w", err)
	}
	return nil
}
