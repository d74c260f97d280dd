// File: pkg/browser/pwdriver/element.go
package pwdriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/shim"
)

// Element wraps a playwright element handle.
type Element struct {
	d *Driver
	h playwright.ElementHandle
}

var _ browser.Element = (*Element)(nil)

func (e *Element) String() string { return fmt.Sprintf("playwright element %v", e.h) }

func bound(a shim.Atom, args ...any) (string, error) {
	fn, err := shim.Bind(a, args...)
	if err != nil {
		return "", err
	}
	return "(el) => (" + fn + ").call(el)", nil
}

func (e *Element) eval(ctx context.Context, a shim.Atom, v any, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expr, err := bound(a, args...)
	if err != nil {
		return err
	}
	res, err := e.h.Evaluate(expr)
	if err != nil {
		return classify(string(a), expr, err)
	}
	if v == nil {
		return nil
	}
	raw, err := codec.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", a, err)
	}
	return browser.DecodeScriptResult(raw, v)
}

// FindElements evaluates xpath with the element as context node, so
// absolute paths still search the whole document.
func (e *Element) FindElements(ctx context.Context, xpath string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expr, err := bound(shim.XPath, xpath)
	if err != nil {
		return nil, err
	}
	h, err := e.h.EvaluateHandle(expr)
	if err != nil {
		return nil, classify("find "+xpath, xpath, err)
	}
	return e.d.elements(h)
}

func (e *Element) notInteractable(op string) error {
	return fmt.Errorf("playwright: cannot %s %s: element not interactable", op, e)
}

func (e *Element) Click(ctx context.Context) error {
	shown, err := e.IsDisplayed(ctx)
	if err != nil {
		return err
	}
	if !shown {
		return e.notInteractable("click")
	}
	var c struct {
		Option bool `json:"option"`
	}
	if err := e.eval(ctx, shim.Center, &c); err != nil {
		return err
	}
	if c.Option {
		return e.eval(ctx, shim.ClickOption, nil)
	}
	return e.d.runUntilDialog(ctx, func() error {
		return classify("click", "", e.h.Click())
	})
}

func (e *Element) Clear(ctx context.Context) error {
	return e.eval(ctx, shim.Clear, nil)
}

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
	kb := e.d.page.Keyboard()
	for i, part := range strings.Split(text, browser.KeyDelete) {
		if i > 0 {
			if err := kb.Press("Delete"); err != nil {
				return classify("send keys", "", err)
			}
		}
		if part == "" {
			continue
		}
		if err := kb.InsertText(part); err != nil {
			return classify("send keys", "", err)
		}
	}
	return nil
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

func (e *Element) Text(ctx context.Context) (string, error) {
	shown, err := e.IsDisplayed(ctx)
	if err != nil || !shown {
		return "", err
	}
	var s string
	err = e.eval(ctx, shim.Text, &s)
	return s, err
}
