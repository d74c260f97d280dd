// File: pkg/browser/rodriver/driver.go
package rodriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/shim"
)

// Driver is one rod page inside its own incognito context.
type Driver struct {
	id        string
	incognito *rod.Browser
	root      *rod.Page
	logger    *zap.Logger
	timeout   time.Duration
	onClose   func()
	stop      context.CancelFunc

	mu      sync.Mutex
	frames  []*rod.Page
	dialog  *proto.PageJavascriptDialogOpening
	dialogs chan struct{}
	closed  bool
}

var _ browser.Driver = (*Driver)(nil)

func newDriver(id string, incognito *rod.Browser, p *rod.Page, timeout time.Duration, logger *zap.Logger) *Driver {
	eventsCtx, stop := context.WithCancel(context.Background())
	d := &Driver{
		id:        id,
		incognito: incognito,
		root:      p,
		logger:    logger.With(zap.String("page", id)),
		timeout:   timeout,
		stop:      stop,
		dialogs:   make(chan struct{}, 1),
	}
	wait := p.Context(eventsCtx).EachEvent(
		func(e *proto.PageJavascriptDialogOpening) {
			d.mu.Lock()
			d.dialog = e
			d.mu.Unlock()
			select {
			case d.dialogs <- struct{}{}:
			default:
			}
			d.logger.Debug("Dialog opened.", zap.String("message", e.Message))
		},
		func(e *proto.PageJavascriptDialogClosed) {
			d.mu.Lock()
			d.dialog = nil
			d.mu.Unlock()
		},
	)
	go wait()
	return d
}

// page returns the page or frame that queries run in, bound to ctx.
func (d *Driver) page(ctx context.Context) *rod.Page {
	d.mu.Lock()
	p := d.root
	if n := len(d.frames); n > 0 {
		p = d.frames[n-1]
	}
	d.mu.Unlock()
	p = p.Context(ctx)
	if d.timeout > 0 {
		p = p.Timeout(d.timeout)
	}
	return p
}

// classify maps rod failures onto the browser error types.
func classify(op, script string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *rod.EvalError
	if errors.As(err, &evalErr) {
		msg := evalErr.Text
		if evalErr.Exception != nil && evalErr.Exception.Description != "" {
			msg = evalErr.Exception.Description
		}
		return &browser.ScriptError{Script: script, Message: msg}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &browser.TransportError{Op: op, Err: err}
}

func (d *Driver) wrap(els rod.Elements) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = &Element{d: d, el: el}
	}
	return out
}

func (d *Driver) FindElements(ctx context.Context, xpath string) ([]browser.Element, error) {
	els, err := d.page(ctx).ElementsX(xpath)
	if err != nil {
		return nil, classify("find "+xpath, xpath, err)
	}
	d.logger.Debug("Evaluated xpath.", zap.String("xpath", xpath), zap.Int("matches", len(els)))
	return d.wrap(els), nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	d.frames = nil
	d.mu.Unlock()

	p := d.page(ctx)
	if err := p.Navigate(url); err != nil {
		return classify("navigate "+url, "", err)
	}
	if err := p.WaitLoad(); err != nil {
		return classify("wait for load", "", err)
	}
	return nil
}

func (d *Driver) info(ctx context.Context) (*proto.TargetTargetInfo, error) {
	p := d.root.Context(ctx)
	info, err := p.Info()
	if err != nil {
		return nil, classify("read page info", "", err)
	}
	return info, nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	info, err := d.info(ctx)
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	info, err := d.info(ctx)
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (d *Driver) evalOptions(ctx context.Context, body string, args []any) (*rod.EvalOptions, error) {
	argsJSON, els, err := browser.EncodeScriptArgs(args)
	if err != nil {
		return nil, err
	}
	handles := make([]any, len(els))
	for i, el := range els {
		e, err := browser.Native[*Element](ctx, el)
		if err != nil {
			return nil, err
		}
		handles[i] = e.el.Object
	}
	fn, err := shim.BuildScript(body, argsJSON)
	if err != nil {
		return nil, err
	}
	return rod.Eval(fn, handles...).ByPromise(), nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	opts, err := d.evalOptions(ctx, script, args)
	if err != nil {
		return nil, err
	}
	res, err := d.page(ctx).Evaluate(opts)
	if err != nil {
		return nil, classify("execute script", script, err)
	}
	return json.RawMessage(res.Value.JSON("", "")), nil
}

func (d *Driver) ScriptElements(ctx context.Context, script string, args ...any) ([]browser.Element, error) {
	opts, err := d.evalOptions(ctx, script, args)
	if err != nil {
		return nil, err
	}
	els, err := d.page(ctx).ElementsByJS(opts)
	if err != nil {
		return nil, classify("execute script", script, err)
	}
	return d.wrap(els), nil
}

func (d *Driver) HasFocus(ctx context.Context, el browser.Element) (bool, error) {
	e, err := browser.Native[*Element](ctx, el)
	if err != nil {
		return false, err
	}
	var focused bool
	err = e.eval(ctx, shim.HasFocus, &focused)
	return focused, err
}

func (d *Driver) SwitchToFrame(ctx context.Context, frame browser.Element) error {
	e, err := browser.Native[*Element](ctx, frame)
	if err != nil {
		return err
	}
	fp, err := e.el.Context(ctx).Frame()
	if err != nil {
		return classify("enter frame", "", err)
	}
	d.mu.Lock()
	d.frames = append(d.frames, fp)
	d.mu.Unlock()
	return nil
}

func (d *Driver) SwitchToDefault(ctx context.Context) error {
	d.mu.Lock()
	d.frames = nil
	d.mu.Unlock()
	return nil
}

// runUntilDialog runs fn, returning early once it opens a dialog that
// would otherwise block it.
func (d *Driver) runUntilDialog(ctx context.Context, fn func() error) error {
	select {
	case <-d.dialogs:
	default:
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-d.dialogs:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) AlertText(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialog == nil {
		return "", browser.ErrNoAlert
	}
	return d.dialog.Message, nil
}

func (d *Driver) AcceptAlert(ctx context.Context) error  { return d.handleDialog(ctx, true) }
func (d *Driver) DismissAlert(ctx context.Context) error { return d.handleDialog(ctx, false) }

func (d *Driver) handleDialog(ctx context.Context, accept bool) error {
	d.mu.Lock()
	open := d.dialog != nil
	d.mu.Unlock()
	if !open {
		return browser.ErrNoAlert
	}
	err := proto.PageHandleJavaScriptDialog{Accept: accept}.Call(d.root.Context(ctx))
	if err != nil {
		return classify("handle dialog", "", err)
	}
	d.mu.Lock()
	d.dialog = nil
	d.mu.Unlock()
	return nil
}

// Close disposes of the page's incognito context.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.stop()
	err := d.incognito.Close()
	if d.onClose != nil {
		d.onClose()
	}
	if err != nil {
		return fmt.Errorf("rod: close page: %w", err)
	}
	return nil
}
