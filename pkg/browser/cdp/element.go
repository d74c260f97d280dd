// File: pkg/browser/cdp/element.go
package cdp

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/shim"
)

// Element is a remote handle to a DOM node in a Driver's tab.
type Element struct {
	d  *Driver
	id runtime.RemoteObjectID
}

var _ browser.Element = (*Element)(nil)

func (e *Element) String() string { return "cdp element " + string(e.id) }

type point struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Option bool    `json:"option"`
}

// eval applies atom a to the element and decodes its result into v, which
// may be nil.
func (e *Element) eval(ctx context.Context, a shim.Atom, v any, args ...any) error {
	fn, err := shim.Bind(a, args...)
	if err != nil {
		return err
	}
	res, err := e.d.call(ctx, e.id, fn, true)
	if err != nil || v == nil {
		return err
	}
	var raw []byte
	if res != nil {
		raw = res.Value
	}
	return browser.DecodeScriptResult(raw, v)
}

func (e *Element) notInteractable(op string) error {
	return fmt.Errorf("cdp: cannot %s %s: element not interactable", op, e)
}

func (e *Element) FindElements(ctx context.Context, expr string) ([]browser.Element, error) {
	return e.d.query(ctx, e.id, expr)
}

// Click scrolls the element into view and clicks its center with a real
// mouse event. Options are picked through their select instead, since
// they have no box of their own.
func (e *Element) Click(ctx context.Context) error {
	shown, err := e.IsDisplayed(ctx)
	if err != nil {
		return err
	}
	if !shown {
		return e.notInteractable("click")
	}

	var c point
	if err := e.eval(ctx, shim.Center, &c); err != nil {
		return err
	}
	if c.Option {
		return e.eval(ctx, shim.ClickOption, nil)
	}

	dx, dy, err := e.d.frameOffset(ctx)
	if err != nil {
		return err
	}
	return e.d.runUntilDialog(ctx, "click", chromedp.MouseClickXY(c.X+dx, c.Y+dy))
}

func (e *Element) Clear(ctx context.Context) error {
	return e.eval(ctx, shim.Clear, nil)
}

// SendKeys focuses the element, places the caret at the end of its value
// and types text as key events.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	shown, err := e.IsDisplayed(ctx)
	if err != nil {
		return err
	}
	if !shown {
		return e.notInteractable("type into")
	}
	if err := e.eval(ctx, shim.Focus, nil); err != nil {
		return err
	}
	keys := strings.ReplaceAll(text, browser.KeyDelete, kb.Delete)
	return e.d.runUntilDialog(ctx, "send keys", chromedp.KeyEvent(keys))
}

func (e *Element) Submit(ctx context.Context) error {
	return e.eval(ctx, shim.Submit, nil)
}

func (e *Element) IsSelected(ctx context.Context) (bool, error) {
	var b bool
	err := e.eval(ctx, shim.IsSelected, &b)
	return b, err
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	var b bool
	err := e.eval(ctx, shim.IsDisplayed, &b)
	return b, err
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	var b bool
	err := e.eval(ctx, shim.IsEnabled, &b)
	return b, err
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	var s string
	err := e.eval(ctx, shim.Property, &s, name)
	return s, err
}

// Text is the rendered text of the element; hidden elements have none.
func (e *Element) Text(ctx context.Context) (string, error) {
	shown, err := e.IsDisplayed(ctx)
	if err != nil || !shown {
		return "", err
	}
	var s string
	err = e.eval(ctx, shim.Text, &s)
	return s, err
}
