// File: pkg/browser/cdp/driver.go

// Package cdp is the primary browser backend. It drives Chrome over the
// DevTools protocol with chromedp: elements are remote object handles and
// every element operation is one Runtime.callFunctionOn round trip running
// a shared atom from pkg/browser/shim.
package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/shim"
)

// Driver is one browser tab.
type Driver struct {
	id      string
	ctx     context.Context // chromedp tab context
	cancel  context.CancelFunc
	logger  *zap.Logger
	timeout time.Duration
	onClose func()

	mu      sync.Mutex
	frames  []runtime.RemoteObjectID // entered frame elements, outermost first
	dialog  *page.EventJavascriptDialogOpening
	dialogs chan struct{}
	closed  bool
}

var _ browser.Driver = (*Driver)(nil)

// newDriver wraps a started tab context and begins tracking its dialogs.
func newDriver(id string, tabCtx context.Context, cancel context.CancelFunc, o Options, logger *zap.Logger) *Driver {
	d := &Driver{
		id:      id,
		ctx:     tabCtx,
		cancel:  cancel,
		logger:  logger.With(zap.String("tab", id)),
		timeout: o.OperationTimeout,
		dialogs: make(chan struct{}, 1),
	}
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			d.mu.Lock()
			d.dialog = e
			d.mu.Unlock()
			select {
			case d.dialogs <- struct{}{}:
			default:
			}
			d.logger.Debug("Dialog opened.", zap.String("type", string(e.Type)), zap.String("message", e.Message))
		case *page.EventJavascriptDialogClosed:
			d.mu.Lock()
			d.dialog = nil
			d.mu.Unlock()
		}
	})
	return d
}

// ID identifies the tab in logs.
func (d *Driver) ID() string { return d.id }

// run executes actions on the tab, bounded by ctx and the operation
// timeout. Script exceptions come back as *browser.ScriptError, any other
// failure as *browser.TransportError.
func (d *Driver) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(d.ctx, ctx)
	defer cancel()
	if d.timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, d.timeout)
		defer cancelTimeout()
	}

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	var se *browser.ScriptError
	if errors.As(err, &se) {
		return se
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &browser.TransportError{Op: op, Err: err}
}

// runUntilDialog is run for actions that may open a JavaScript dialog. A
// dialog blocks the page, so the action counts as done once one opens;
// it completes in the background when the dialog is handled.
func (d *Driver) runUntilDialog(ctx context.Context, op string, action chromedp.Action) error {
	select {
	case <-d.dialogs:
	default:
	}
	done := make(chan error, 1)
	go func() { done <- d.run(Detach(ctx), op, action) }()
	select {
	case err := <-done:
		return err
	case <-d.dialogs:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func scriptError(script string, exc *runtime.ExceptionDetails) *browser.ScriptError {
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		msg = exc.Exception.Description
	}
	return &browser.ScriptError{Script: script, Message: msg}
}

// call invokes the function declaration fn with this bound to obj and the
// given handles as arguments.
func (d *Driver) call(ctx context.Context, obj runtime.RemoteObjectID, fn string, byValue bool, handles ...runtime.RemoteObjectID) (*runtime.RemoteObject, error) {
	args := make([]*runtime.CallArgument, len(handles))
	for i, h := range handles {
		args[i] = &runtime.CallArgument{ObjectID: h}
	}
	var res *runtime.RemoteObject
	err := d.run(ctx, "call function", chromedp.ActionFunc(func(ctx context.Context) error {
		r, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj).
			WithArguments(args).
			WithReturnByValue(byValue).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError(fn, exc)
		}
		res = r
		return nil
	}))
	return res, err
}

// document returns the document that queries and scripts run against:
// the top level one, or the content document of the innermost entered
// frame.
func (d *Driver) document(ctx context.Context) (runtime.RemoteObjectID, error) {
	d.mu.Lock()
	var frame runtime.RemoteObjectID
	if n := len(d.frames); n > 0 {
		frame = d.frames[n-1]
	}
	d.mu.Unlock()

	if frame != "" {
		fn, err := shim.Source(shim.ContentDocument)
		if err != nil {
			return "", err
		}
		obj, err := d.call(ctx, frame, fn, false)
		if err != nil {
			return "", err
		}
		return obj.ObjectID, nil
	}

	var id runtime.RemoteObjectID
	err := d.run(ctx, "locate document", chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exc, err := runtime.Evaluate("document").Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError("document", exc)
		}
		id = obj.ObjectID
		return nil
	}))
	return id, err
}

// elements turns a remote array (or single node) into element handles.
func (d *Driver) elements(ctx context.Context, res *runtime.RemoteObject) ([]browser.Element, error) {
	if res == nil || res.ObjectID == "" {
		return []browser.Element{}, nil
	}
	if res.Subtype == "node" {
		return []browser.Element{&Element{d: d, id: res.ObjectID}}, nil
	}

	var props []*runtime.PropertyDescriptor
	err := d.run(ctx, "read array", chromedp.ActionFunc(func(ctx context.Context) error {
		var (
			exc *runtime.ExceptionDetails
			err error
		)
		props, _, _, exc, err = runtime.GetProperties(res.ObjectID).WithOwnProperties(true).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return scriptError("getProperties", exc)
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	type indexed struct {
		i  int
		id runtime.RemoteObjectID
	}
	items := make([]indexed, 0, len(props))
	for _, p := range props {
		i, err := strconv.Atoi(p.Name)
		if err != nil || p.Value == nil || p.Value.ObjectID == "" {
			continue
		}
		items = append(items, indexed{i: i, id: p.Value.ObjectID})
	}
	sort.Slice(items, func(a, b int) bool { return items[a].i < items[b].i })

	out := make([]browser.Element, len(items))
	for k, it := range items {
		out[k] = &Element{d: d, id: it.id}
	}
	return out, nil
}

// query evaluates expr with obj as the context node.
func (d *Driver) query(ctx context.Context, obj runtime.RemoteObjectID, expr string) ([]browser.Element, error) {
	fn, err := shim.Bind(shim.XPath, expr)
	if err != nil {
		return nil, err
	}
	res, err := d.call(ctx, obj, fn, false)
	if err != nil {
		return nil, err
	}
	els, err := d.elements(ctx, res)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("Evaluated xpath.", zap.String("xpath", expr), zap.Int("matches", len(els)))
	return els, nil
}

func (d *Driver) FindElements(ctx context.Context, expr string) ([]browser.Element, error) {
	doc, err := d.document(ctx)
	if err != nil {
		return nil, err
	}
	return d.query(ctx, doc, expr)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, "navigate "+url, chromedp.Navigate(url)); err != nil {
		return err
	}
	d.mu.Lock()
	d.frames = nil
	d.mu.Unlock()
	d.logger.Debug("Navigated.", zap.String("url", url))
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var u string
	err := d.run(ctx, "read location", chromedp.Location(&u))
	return u, err
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var t string
	err := d.run(ctx, "read title", chromedp.Title(&t))
	return t, err
}

// script runs a WebDriver style body in the current document.
func (d *Driver) script(ctx context.Context, body string, args []any, byValue bool) (*runtime.RemoteObject, error) {
	argsJSON, els, err := browser.EncodeScriptArgs(args)
	if err != nil {
		return nil, err
	}
	handles := make([]runtime.RemoteObjectID, len(els))
	for i, el := range els {
		e, err := browser.Native[*Element](ctx, el)
		if err != nil {
			return nil, err
		}
		handles[i] = e.id
	}
	fn, err := shim.BuildScript(body, argsJSON)
	if err != nil {
		return nil, err
	}
	doc, err := d.document(ctx)
	if err != nil {
		return nil, err
	}
	res, err := d.call(ctx, doc, fn, byValue, handles...)
	if se := (*browser.ScriptError)(nil); errors.As(err, &se) {
		se.Script = body
	}
	return res, err
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	res, err := d.script(ctx, script, args, true)
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Value) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(res.Value), nil
}

func (d *Driver) ScriptElements(ctx context.Context, script string, args ...any) ([]browser.Element, error) {
	res, err := d.script(ctx, script, args, false)
	if err != nil {
		return nil, err
	}
	return d.elements(ctx, res)
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

// SwitchToFrame enters the frame element, which must belong to the
// current document.
func (d *Driver) SwitchToFrame(ctx context.Context, frame browser.Element) error {
	e, err := browser.Native[*Element](ctx, frame)
	if err != nil {
		return err
	}
	if e.d != d {
		return fmt.Errorf("cdp: frame element belongs to another tab")
	}
	d.mu.Lock()
	d.frames = append(d.frames, e.id)
	d.mu.Unlock()
	return nil
}

func (d *Driver) SwitchToDefault(ctx context.Context) error {
	d.mu.Lock()
	d.frames = nil
	d.mu.Unlock()
	return nil
}

// frameOffset is the viewport position of the current frame's content
// relative to the top level viewport.
func (d *Driver) frameOffset(ctx context.Context) (float64, float64, error) {
	d.mu.Lock()
	frames := append([]runtime.RemoteObjectID(nil), d.frames...)
	d.mu.Unlock()

	var x, y float64
	for _, f := range frames {
		var off point
		if err := (&Element{d: d, id: f}).eval(ctx, shim.FrameOffset, &off); err != nil {
			return 0, 0, err
		}
		x, y = x+off.X, y+off.Y
	}
	return x, y, nil
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
	if err := d.run(ctx, "handle dialog", page.HandleJavaScriptDialog(accept)); err != nil {
		return err
	}
	d.mu.Lock()
	d.dialog = nil
	d.mu.Unlock()
	return nil
}

// Close closes the tab. It is safe to call more than once.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	if d.onClose != nil {
		d.onClose()
	}
	d.logger.Debug("Tab closed.")
	return nil
}
