// File: pkg/browser/static/element.go
package static

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

// Element is a node of a Driver's document. Two Elements are equal when
// they wrap the same node.
type Element struct {
	d *Driver
	n *html.Node
}

var _ browser.Element = (*Element)(nil)

// Node exposes the underlying parse tree node.
func (e *Element) Node() *html.Node { return e.n }

func (e *Element) String() string {
	return fmt.Sprintf("<%s id=%q>", tagName(e.n), htmlquery.SelectAttr(e.n, "id"))
}

func (e *Element) FindElements(ctx context.Context, expr string) ([]browser.Element, error) {
	return e.d.query(ctx, e.n, expr)
}

func (e *Element) notInteractable(op string) error {
	return fmt.Errorf("static: cannot %s %s: element not interactable", op, e)
}

// Click simulates a user click: it toggles checkboxes, picks radios and
// options, activates labels, submits forms from submit controls and
// follows links. Clicks on disabled controls do nothing.
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !displayed(e.n) {
		return e.notInteractable("click")
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.d.activateLocked(e.n)
}

func (d *Driver) activateLocked(n *html.Node) error {
	if !enabled(n) {
		return nil
	}
	d.focused = n

	switch tagName(n) {
	case "input":
		switch inputType(n) {
		case "checkbox":
			if hasAttr(n, "checked") {
				removeAttr(n, "checked")
			} else {
				setAttr(n, "checked", "checked")
			}
		case "radio":
			checkRadio(n)
		case "submit", "image":
			if form := ancestor(n, "form"); form != nil {
				return d.submitLocked(form)
			}
		}
	case "button":
		t := strings.ToLower(htmlquery.SelectAttr(n, "type"))
		if t == "" || t == "submit" {
			if form := ancestor(n, "form"); form != nil {
				return d.submitLocked(form)
			}
		}
	case "option":
		selectOption(n)
	case "label":
		if target := labelTarget(d.root, n); target != nil {
			return d.activateLocked(target)
		}
	case "a":
		if hasAttr(n, "href") {
			return d.navigateLocked(htmlquery.SelectAttr(n, "href"))
		}
	}
	return nil
}

func checkRadio(n *html.Node) {
	name := htmlquery.SelectAttr(n, "name")
	scope := ancestor(n, "form")
	if scope == nil {
		scope = n
		for scope.Parent != nil {
			scope = scope.Parent
		}
	}
	if name != "" {
		for _, r := range descendants(scope, func(c *html.Node) bool {
			return tagName(c) == "input" && inputType(c) == "radio" && htmlquery.SelectAttr(c, "name") == name
		}) {
			removeAttr(r, "checked")
		}
	}
	setAttr(n, "checked", "checked")
}

// selectOption follows WebDriver option semantics: toggle inside a
// multiple select, exclusive choice otherwise.
func selectOption(opt *html.Node) {
	sel := ancestor(opt, "select")
	if sel != nil && hasAttr(sel, "multiple") {
		if hasAttr(opt, "selected") {
			removeAttr(opt, "selected")
		} else {
			setAttr(opt, "selected", "selected")
		}
		return
	}
	if sel != nil {
		for _, o := range optionsOf(sel) {
			removeAttr(o, "selected")
		}
	}
	setAttr(opt, "selected", "selected")
}

func labelTarget(root *html.Node, label *html.Node) *html.Node {
	if id := htmlquery.SelectAttr(label, "for"); id != "" {
		return findByID(root, id)
	}
	nested := descendants(label, func(c *html.Node) bool {
		switch tagName(c) {
		case "input", "select", "textarea", "button":
			return true
		}
		return false
	})
	if len(nested) > 0 {
		return nested[0]
	}
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !isEditable(e.n) || !enabled(e.n) {
		return e.notInteractable("clear")
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	setValue(e.n, "")
	return nil
}

// SendKeys appends text to the control's value. The Delete key empties
// the value, standing in for clearing a date field segment by segment.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !isEditable(e.n) || !displayed(e.n) {
		return e.notInteractable("type into")
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()

	e.d.focused = e.n
	value := currentValue(e.n)
	if strings.Contains(text, browser.KeyDelete) {
		value = ""
		text = strings.ReplaceAll(text, browser.KeyDelete, "")
	}
	setValue(e.n, value+text)
	return nil
}

func (e *Element) Submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	form := ancestor(e.n, "form")
	if form == nil {
		return fmt.Errorf("static: %s is not inside a form", e)
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.d.submitLocked(form)
}

func (e *Element) IsSelected(ctx context.Context) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	switch tagName(e.n) {
	case "option":
		return optionSelected(e.n), nil
	case "input":
		switch inputType(e.n) {
		case "checkbox", "radio":
			return hasAttr(e.n, "checked"), nil
		}
	}
	return false, nil
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	return displayed(e.n), nil
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	return enabled(e.n), nil
}

// HasFocus reports whether el received the last click or keystroke.
func (d *Driver) HasFocus(ctx context.Context, el browser.Element) (bool, error) {
	se, err := browser.Native[*Element](ctx, el)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused != nil && d.focused == se.n, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	switch strings.ToLower(name) {
	case "value":
		return currentValue(e.n), nil
	case "checked", "selected", "disabled", "multiple", "readonly", "required", "hidden":
		on := hasAttr(e.n, name)
		if name == "selected" && tagName(e.n) == "option" {
			on = optionSelected(e.n)
		}
		if on {
			return "true", nil
		}
		return "", nil
	case "href", "src", "action":
		v := htmlquery.SelectAttr(e.n, name)
		if v == "" {
			return "", nil
		}
		return e.d.resolveLocked(v), nil
	}
	return htmlquery.SelectAttr(e.n, name), nil
}

// Text returns the rendered text, which is empty for hidden elements.
func (e *Element) Text(ctx context.Context) (string, error) {
	if !displayed(e.n) {
		return "", nil
	}
	return renderedText(e.n), nil
}
