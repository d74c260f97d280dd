// File: pkg/browser/pwdriver/driver.go
package pwdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/shim"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Driver is one playwright page in its own browser context.
type Driver struct {
	id      string
	bctx    playwright.BrowserContext
	page    playwright.Page
	logger  *zap.Logger
	onClose func()

	mu      sync.Mutex
	frames  []playwright.Frame
	dialog  playwright.Dialog
	dialogs chan struct{}
	closed  bool
}

var _ browser.Driver = (*Driver)(nil)

func newDriver(id string, bctx playwright.BrowserContext, page playwright.Page, logger *zap.Logger) *Driver {
	d := &Driver{
		id:      id,
		bctx:    bctx,
		page:    page,
		logger:  logger.With(zap.String("page", id)),
		dialogs: make(chan struct{}, 1),
	}
	// A registered listener keeps playwright from dismissing dialogs on
	// its own; they stay open until a step handles them.
	page.OnDialog(func(dlg playwright.Dialog) {
		d.mu.Lock()
		d.dialog = dlg
		d.mu.Unlock()
		select {
		case d.dialogs <- struct{}{}:
		default:
		}
		d.logger.Debug("Dialog opened.", zap.String("type", dlg.Type()), zap.String("message", dlg.Message()))
	})
	return d
}

// classify maps playwright failures onto the browser error types. Errors
// raised while evaluating script are script errors unless they are
// timeouts.
func classify(op, script string, err error) error {
	if err == nil {
		return nil
	}
	var pe *playwright.Error
	if script != "" && errors.As(err, &pe) && pe.Name != "TimeoutError" {
		return &browser.ScriptError{Script: script, Message: pe.Message}
	}
	return &browser.TransportError{Op: op, Err: err}
}

func (d *Driver) frame() playwright.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.frames); n > 0 {
		return d.frames[n-1]
	}
	return d.page.MainFrame()
}

func (d *Driver) wrap(handles []playwright.ElementHandle) []browser.Element {
	out := make([]browser.Element, len(handles))
	for i, h := range handles {
		out[i] = &Element{d: d, h: h}
	}
	return out
}

// elements unpacks a handle to an array of nodes, or a single node.
func (d *Driver) elements(h playwright.JSHandle) ([]browser.Element, error) {
	if el := h.AsElement(); el != nil {
		return d.wrap([]playwright.ElementHandle{el}), nil
	}
	defer func() { _ = h.Dispose() }()

	props, err := h.GetProperties()
	if err != nil {
		return nil, classify("read array", "", err)
	}
	type indexed struct {
		i int
		h playwright.ElementHandle
	}
	items := make([]indexed, 0, len(props))
	for name, p := range props {
		i, err := strconv.Atoi(name)
		el := p.AsElement()
		if err != nil || el == nil {
			continue
		}
		items = append(items, indexed{i: i, h: el})
	}
	sort.Slice(items, func(a, b int) bool { return items[a].i < items[b].i })

	handles := make([]playwright.ElementHandle, len(items))
	for k, it := range items {
		handles[k] = it.h
	}
	return d.wrap(handles), nil
}

func (d *Driver) FindElements(ctx context.Context, xpath string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := d.frame().QuerySelectorAll("xpath=" + xpath)
	if err != nil {
		return nil, classify("find "+xpath, xpath, err)
	}
	d.logger.Debug("Evaluated xpath.", zap.String("xpath", xpath), zap.Int("matches", len(handles)))
	return d.wrap(handles), nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.frames = nil
	d.mu.Unlock()
	if _, err := d.page.Goto(url); err != nil {
		return classify("navigate "+url, "", err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	return d.page.URL(), ctx.Err()
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, err := d.page.Title()
	if err != nil {
		return "", classify("read title", "", err)
	}
	return t, nil
}

// scriptExpression wraps a WebDriver style body into an expression taking
// the element handles as one array argument.
func (d *Driver) scriptExpression(ctx context.Context, body string, args []any) (string, []any, error) {
	argsJSON, els, err := browser.EncodeScriptArgs(args)
	if err != nil {
		return "", nil, err
	}
	handles := make([]any, len(els))
	for i, el := range els {
		e, err := browser.Native[*Element](ctx, el)
		if err != nil {
			return "", nil, err
		}
		handles[i] = e.h
	}
	fn, err := shim.BuildScript(body, argsJSON)
	if err != nil {
		return "", nil, err
	}
	return "(handles) => (" + fn + ").apply(window, handles)", handles, nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expr, handles, err := d.scriptExpression(ctx, script, args)
	if err != nil {
		return nil, err
	}
	v, err := d.frame().Evaluate(expr, handles)
	if err != nil {
		return nil, classify("execute script", script, err)
	}
	raw, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode script result: %w", err)
	}
	return json.RawMessage(raw), nil
}

func (d *Driver) ScriptElements(ctx context.Context, script string, args ...any) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expr, handles, err := d.scriptExpression(ctx, script, args)
	if err != nil {
		return nil, err
	}
	h, err := d.frame().EvaluateHandle(expr, handles)
	if err != nil {
		return nil, classify("execute script", script, err)
	}
	return d.elements(h)
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
	f, err := e.h.ContentFrame()
	if err != nil {
		return classify("enter frame", "", err)
	}
	if f == nil {
		return fmt.Errorf("playwright: %s is not a frame", e)
	}
	d.mu.Lock()
	d.frames = append(d.frames, f)
	d.mu.Unlock()
	return nil
}

func (d *Driver) SwitchToDefault(ctx context.Context) error {
	d.mu.Lock()
	d.frames = nil
	d.mu.Unlock()
	return nil
}

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
	return d.dialog.Message(), nil
}

func (d *Driver) AcceptAlert(ctx context.Context) error {
	return d.handleDialog(func(dlg playwright.Dialog) error { return dlg.Accept() })
}

func (d *Driver) DismissAlert(ctx context.Context) error {
	return d.handleDialog(func(dlg playwright.Dialog) error { return dlg.Dismiss() })
}

func (d *Driver) handleDialog(fn func(playwright.Dialog) error) error {
	d.mu.Lock()
	dlg := d.dialog
	d.dialog = nil
	d.mu.Unlock()
	if dlg == nil {
		return browser.ErrNoAlert
	}
	if err := fn(dlg); err != nil {
		return classify("handle dialog", "", err)
	}
	return nil
}

// Close closes the page's browser context.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	err := d.bctx.Close()
	if d.onClose != nil {
		d.onClose()
	}
	if err != nil {
		return fmt.Errorf("playwright: close context: %w", err)
	}
	return nil
}
