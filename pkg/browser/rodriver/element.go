// File: pkg/browser/rodriver/element.go
package rodriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/shim"
)

// Element wraps a rod element.
type Element struct {
	d  *Driver
	el *rod.Element
}

var _ browser.Element = (*Element)(nil)

func (e *Element) String() string { return "rod element " + string(e.el.Object.ObjectID) }

func (e *Element) bound(ctx context.Context) *rod.Element {
	el := e.el.Context(ctx)
	if e.d.timeout > 0 {
		el = el.Timeout(e.d.timeout)
	}
	return el
}

func (e *Element) eval(ctx context.Context, a shim.Atom, v any, args ...any) error {
	fn, err := shim.Bind(a, args...)
	if err != nil {
		return err
	}
	res, err := e.bound(ctx).Eval(fn)
	if err != nil {
		return classify(string(a), fn, err)
	}
	if v == nil {
		return nil
	}
	return browser.DecodeScriptResult([]byte(res.Value.JSON("", "")), v)
}

func (e *Element) FindElements(ctx context.Context, xpath string) ([]browser.Element, error) {
	els, err := e.bound(ctx).ElementsX(xpath)
	if err != nil {
		return nil, classify("find "+xpath, xpath, err)
	}
	return e.d.wrap(els), nil
}

func (e *Element) notInteractable(op string) error {
	return fmt.Errorf("rod: cannot %s %s: element not interactable", op, e)
}

func (e *Element) Click(ctx context.Context) error {
	shown, err := e.IsDisplayed(ctx)
	if err != nil {
		return err
	}
	if !shown {
		return e.notInteractable("click")
	}
	if name, err := e.el.Context(ctx).Property("tagName"); err == nil && name.Str() == "OPTION" {
		return e.eval(ctx, shim.ClickOption, nil)
	}
	el := e.bound(context.Background())
	return e.d.runUntilDialog(ctx, func() error {
		return classify("click", "", el.Click(proto.InputMouseButtonLeft, 1))
	})
}

func (e *Element) Clear(ctx context.Context) error {
	return e.eval(ctx, shim.Clear, nil)
}

// SendKeys focuses the element with the caret at the end and inserts
// text. Delete key code points are sent as real key presses.
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
	p := e.d.page(ctx)
	for i, part := range strings.Split(text, browser.KeyDelete) {
		if i > 0 {
			if err := p.Keyboard.Type(input.Delete); err != nil {
				return classify("send keys", "", err)
			}
		}
		if part == "" {
			continue
		}
		if err := p.InsertText(part); err != nil {
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
