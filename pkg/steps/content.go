// File: pkg/steps/content.go
package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/fields"
	"github.com/xkilldash9x/webstep/pkg/wait"
)

func (w *World) see(ctx context.Context, text string) error {
	el, err := wait.Content(ctx, w.once(), w.driver, text)
	if err != nil {
		return err
	}
	if el == nil {
		return failf("expected to see %q", text)
	}
	return nil
}

func (w *World) seeWithin(ctx context.Context, text string, seconds int) error {
	el, err := wait.Content(ctx, w.within(seconds), w.driver, text)
	if err != nil {
		return err
	}
	if el == nil {
		return failf("expected to see %q within %d seconds", text, seconds)
	}
	return nil
}

func (w *World) notSee(ctx context.Context, text string) error {
	el, err := wait.Content(ctx, w.once(), w.driver, text)
	if err != nil {
		return err
	}
	if el != nil {
		return failf("expected not to see %q", text)
	}
	return nil
}

func idContainsXPath(id, text string) string {
	return fmt.Sprintf("//*[@id=%s][contains(., %s)]", fields.Literal(id), fields.Literal(text))
}

func (w *World) elementContains(ctx context.Context, id, text string) error {
	return w.mustExist(ctx, idContainsXPath(id, text))
}

func (w *World) elementNotContains(ctx context.Context, id, text string) error {
	els, err := w.driver.FindElements(ctx, idContainsXPath(id, text))
	if err != nil {
		return err
	}
	if len(els) > 0 {
		return failf("expected the element with id %q not to contain %q", id, text)
	}
	return nil
}

func (w *World) seeID(ctx context.Context, id string) error {
	el, err := w.first(ctx, fields.IDXPath(id))
	if err != nil {
		return err
	}
	shown, err := el.IsDisplayed(ctx)
	if err != nil {
		return err
	}
	if !shown {
		return failf("the element with id %q is not displayed", id)
	}
	return nil
}

func (w *World) seeIDWithin(ctx context.Context, id string, seconds int) error {
	el, err := wait.Visible(ctx, w.within(seconds), w.driver, fields.IDXPath(id))
	if err != nil {
		return err
	}
	if el == nil {
		return failf("no element with id %q became visible within %d seconds", id, seconds)
	}
	return nil
}

// notSeeID passes when the element is missing or hidden.
func (w *World) notSeeID(ctx context.Context, id string) error {
	el, err := w.first(ctx, fields.IDXPath(id))
	var nf *browser.ElementNotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	if err != nil {
		return err
	}
	shown, err := el.IsDisplayed(ctx)
	if err != nil {
		return err
	}
	if shown {
		return failf("expected the element with id %q to be hidden", id)
	}
	return nil
}

func (w *World) hasFocus(ctx context.Context, id string) (bool, error) {
	el, err := w.first(ctx, fields.IDXPath(id))
	if err != nil {
		return false, err
	}
	return w.driver.HasFocus(ctx, el)
}

func (w *World) focused(ctx context.Context, id string) error {
	ok, err := w.hasFocus(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return failf("expected the element with id %q to be focused", id)
	}
	return nil
}

func (w *World) notFocused(ctx context.Context, id string) error {
	ok, err := w.hasFocus(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		return failf("expected the element with id %q not to be focused", id)
	}
	return nil
}

func (w *World) clickLabel(ctx context.Context, label string) error {
	el, err := w.first(ctx, fmt.Sprintf("//label[normalize-space(text()) = %s]", fields.Literal(label)))
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func tooltipXPath(tooltip string) string {
	lit := fields.Literal(tooltip)
	return fmt.Sprintf("//*[@title=%s or @data-original-title=%s]", lit, lit)
}

func (w *World) visibleTooltips(ctx context.Context, tooltip string) ([]browser.Element, error) {
	els, err := w.driver.FindElements(ctx, tooltipXPath(tooltip))
	if err != nil {
		return nil, err
	}
	shown := els[:0]
	for _, el := range els {
		ok, err := el.IsDisplayed(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			shown = append(shown, el)
		}
	}
	return shown, nil
}

func (w *World) seeTooltip(ctx context.Context, tooltip string) error {
	els, err := w.visibleTooltips(ctx, tooltip)
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return failf("expected a visible element with tooltip %q", tooltip)
	}
	return nil
}

func (w *World) notSeeTooltip(ctx context.Context, tooltip string) error {
	els, err := w.visibleTooltips(ctx, tooltip)
	if err != nil {
		return err
	}
	if len(els) > 0 {
		return failf("expected no visible element with tooltip %q", tooltip)
	}
	return nil
}

// clickTooltip clicks the first element with the tooltip that accepts
// the click.
func (w *World) clickTooltip(ctx context.Context, tooltip string) error {
	els, err := w.driver.FindElements(ctx, tooltipXPath(tooltip))
	if err != nil {
		return err
	}
	var last error
	for _, el := range els {
		if last = el.Click(ctx); last == nil {
			return nil
		}
	}
	if last != nil {
		return fmt.Errorf("no element with tooltip %q could be clicked: %w", tooltip, last)
	}
	return failf("no element with tooltip %q found", tooltip)
}
