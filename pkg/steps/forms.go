// File: pkg/steps/forms.go
package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/fields"
	"github.com/xkilldash9x/webstep/pkg/query"
)

func (w *World) seeForm(ctx context.Context, action string) error {
	return w.mustExist(ctx, fmt.Sprintf("//form[@action=%s]", fields.Literal(action)))
}

// fillIn prefers date controls, which are cleared with the Delete key,
// over the other text controls.
func (w *World) fillIn(ctx context.Context, name, value string) error {
	field, err := fields.FindAnyField(ctx, w.driver, fields.DateKinds, name)
	if err != nil {
		return err
	}
	isDate, err := field.Exists(ctx)
	if err != nil {
		return err
	}
	if !isDate {
		field, err = fields.FindAnyField(ctx, w.driver, fields.TextKinds, name)
		if err != nil {
			return err
		}
		if ok, err := field.Exists(ctx); err != nil {
			return err
		} else if !ok {
			return failf("can not find a field named %q", name)
		}
	}

	if isDate {
		err = field.SendKeys(ctx, browser.KeyDelete)
	} else {
		err = field.Clear(ctx)
	}
	if err != nil {
		return err
	}
	return field.SendKeys(ctx, value)
}

func (w *World) press(ctx context.Context, key string) error {
	button, err := fields.FindButton(ctx, w.driver, key)
	if err != nil {
		return err
	}
	return button.Click(ctx)
}

func (w *World) inputHasValue(ctx context.Context, name, value string) error {
	field, err := fields.FindAnyField(ctx, w.driver, fields.EditableKinds(), name)
	if err != nil {
		return err
	}
	if ok, err := field.Exists(ctx); err != nil {
		return err
	} else if !ok {
		return failf("can not find a field named %q", name)
	}
	got, err := field.Attribute(ctx, "value")
	if err != nil {
		return err
	}
	if got != value {
		return failf("expected field %q to have value %q, got %q", name, value, got)
	}
	return nil
}

func (w *World) submitXPath(ctx context.Context, xpath string) error {
	form, err := w.first(ctx, xpath)
	if err != nil {
		return err
	}
	return form.Submit(ctx)
}

func (w *World) submitOnlyForm(ctx context.Context) error {
	return w.submitXPath(ctx, "//form")
}

func (w *World) submitFormID(ctx context.Context, id string) error {
	return w.submitXPath(ctx, fields.IDXPath(id))
}

func (w *World) submitFormAction(ctx context.Context, action string) error {
	return w.submitXPath(ctx, fmt.Sprintf("//form[@action=%s]", fields.Literal(action)))
}

func (w *World) field(ctx context.Context, kind fields.Kind, key string) (*query.Set, error) {
	return fields.FindField(ctx, w.driver, kind, key)
}

// setChecked clicks the checkbox named key when its state differs from on.
func (w *World) setChecked(ctx context.Context, key string, on bool) error {
	box, err := w.field(ctx, fields.Checkbox, key)
	if err != nil {
		return err
	}
	checked, err := box.IsSelected(ctx)
	if err != nil {
		return err
	}
	if checked == on {
		return nil
	}
	return box.Click(ctx)
}

func (w *World) check(ctx context.Context, key string) error   { return w.setChecked(ctx, key, true) }
func (w *World) uncheck(ctx context.Context, key string) error { return w.setChecked(ctx, key, false) }

func (w *World) expectSelected(ctx context.Context, s *query.Set, want bool, what string) error {
	on, err := s.IsSelected(ctx)
	if err != nil {
		return err
	}
	if on != want {
		if want {
			return failf("expected %s to be selected", what)
		}
		return failf("expected %s not to be selected", what)
	}
	return nil
}

func (w *World) checkboxChecked(ctx context.Context, key string) error {
	box, err := w.field(ctx, fields.Checkbox, key)
	if err != nil {
		return err
	}
	return w.expectSelected(ctx, box, true, fmt.Sprintf("checkbox %q", key))
}

func (w *World) checkboxNotChecked(ctx context.Context, key string) error {
	box, err := w.field(ctx, fields.Checkbox, key)
	if err != nil {
		return err
	}
	return w.expectSelected(ctx, box, false, fmt.Sprintf("checkbox %q", key))
}

func (w *World) selectOne(ctx context.Context, option, sel string) error {
	opt, err := fields.FindOption(ctx, w.driver, sel, option)
	if err != nil {
		return err
	}
	return opt.Click(ctx)
}

// optionNames splits a docstring into one trimmed name per non-blank line.
func optionNames(doc *godog.DocString) []string {
	var names []string
	if doc == nil {
		return names
	}
	for _, line := range strings.Split(doc.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}

func (w *World) selectBox(ctx context.Context, key string) (browser.Element, error) {
	sel, err := w.field(ctx, fields.Select, key)
	if err != nil {
		return nil, err
	}
	return sel.Single(ctx)
}

func (w *World) selectMany(ctx context.Context, key string, doc *godog.DocString) error {
	sel, err := w.selectBox(ctx, key)
	if err != nil {
		return err
	}
	return fields.SelectOptions(ctx, sel, optionNames(doc))
}

func (w *World) optionSelected(ctx context.Context, option, sel string) error {
	opt, err := fields.FindOption(ctx, w.driver, sel, option)
	if err != nil {
		return err
	}
	return w.expectSelected(ctx, opt, true, fmt.Sprintf("option %q of %q", option, sel))
}

// optionsSelected checks that exactly the listed options are selected.
func (w *World) optionsSelected(ctx context.Context, key string, doc *godog.DocString) error {
	sel, err := w.selectBox(ctx, key)
	if err != nil {
		return err
	}
	names := optionNames(doc)
	opts, err := sel.FindElements(ctx, "./option")
	if err != nil {
		return err
	}
	for _, opt := range opts {
		want, err := fields.OptionMatches(ctx, opt, names)
		if err != nil {
			return err
		}
		on, err := opt.IsSelected(ctx)
		if err != nil {
			return err
		}
		if on != want {
			text, err := optionLabel(ctx, opt)
			if err != nil {
				return err
			}
			if want {
				return failf("expected option %q of %q to be selected", text, key)
			}
			return failf("expected option %q of %q not to be selected", text, key)
		}
	}
	return nil
}

// optionLabel names opt in failure messages: its text, or its value when
// the text is blank.
func optionLabel(ctx context.Context, opt browser.Element) (string, error) {
	text, err := opt.Text(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	return opt.Attribute(ctx, "value")
}

func (w *World) seeOption(ctx context.Context, option, sel string) error {
	opt, err := fields.OptionInSelect(ctx, w.driver, sel, option)
	if err != nil {
		return err
	}
	if opt == nil {
		return failf("expected option %q in selector %q", option, sel)
	}
	return nil
}

func (w *World) notSeeOption(ctx context.Context, option, sel string) error {
	opt, err := fields.OptionInSelect(ctx, w.driver, sel, option)
	if err != nil {
		return err
	}
	if opt != nil {
		return failf("expected no option %q in selector %q", option, sel)
	}
	return nil
}

func (w *World) choose(ctx context.Context, key string) error {
	radio, err := w.field(ctx, fields.Radio, key)
	if err != nil {
		return err
	}
	return radio.Click(ctx)
}

func (w *World) chosen(ctx context.Context, key string) error {
	radio, err := w.field(ctx, fields.Radio, key)
	if err != nil {
		return err
	}
	return w.expectSelected(ctx, radio, true, fmt.Sprintf("radio %q", key))
}

func (w *World) notChosen(ctx context.Context, key string) error {
	radio, err := w.field(ctx, fields.Radio, key)
	if err != nil {
		return err
	}
	return w.expectSelected(ctx, radio, false, fmt.Sprintf("radio %q", key))
}
