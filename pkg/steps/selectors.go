// File: pkg/steps/selectors.go
package steps

import (
	"context"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/fields"
	"github.com/xkilldash9x/webstep/pkg/wait"
)

func (w *World) selectFirst(ctx context.Context, sel string) (browser.Element, error) {
	els, err := w.finder.Find(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, failf("no elements matched: %s", sel)
	}
	return els[0], nil
}

func (w *World) selectorExists(ctx context.Context, sel string) error {
	els, err := w.finder.Find(ctx, sel)
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return failf("expected an element matching $(%q)", sel)
	}
	return nil
}

func (w *World) selectorWithin(ctx context.Context, sel string, seconds int) error {
	els, err := wait.Poll(ctx, w.within(seconds), func(ctx context.Context) ([]browser.Element, bool, error) {
		els, err := w.finder.Find(ctx, sel)
		return els, len(els) > 0, err
	})
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return failf("no element matched $(%q) within %d seconds", sel, seconds)
	}
	return nil
}

func (w *World) selectorCount(ctx context.Context, n int, sel string) error {
	els, err := w.finder.Find(ctx, sel)
	if err != nil {
		return err
	}
	if len(els) != n {
		return failf("expected exactly %d elements matching $(%q), found %d", n, sel, len(els))
	}
	return nil
}

func (w *World) selectorAbsent(ctx context.Context, sel string) error {
	els, err := w.finder.Find(ctx, sel)
	if err != nil {
		return err
	}
	if len(els) > 0 {
		return failf("expected no element matching $(%q), found %d", sel, len(els))
	}
	return nil
}

func (w *World) selectorFillIn(ctx context.Context, sel, value string) error {
	el, err := w.selectFirst(ctx, sel)
	if err != nil {
		return err
	}
	if err := el.Clear(ctx); err != nil {
		return err
	}
	return el.SendKeys(ctx, value)
}

// selectorSubmit submits the form around the match, dispatching a submit
// event first so page listeners see it.
func (w *World) selectorSubmit(ctx context.Context, sel string) error {
	el, err := w.selectFirst(ctx, sel)
	if err != nil {
		return err
	}
	return fields.SubmitForm(ctx, el)
}

func (w *World) selectorCheck(ctx context.Context, sel string) error {
	el, err := w.selectFirst(ctx, sel)
	if err != nil {
		return err
	}
	on, err := el.IsSelected(ctx)
	if err != nil || on {
		return err
	}
	return el.Click(ctx)
}

func (w *World) selectorClick(ctx context.Context, sel string) error {
	el, err := w.selectFirst(ctx, sel)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func (w *World) selectorFollow(ctx context.Context, sel string) error {
	el, err := w.selectFirst(ctx, sel)
	if err != nil {
		return err
	}
	href, err := el.Attribute(ctx, "href")
	if err != nil {
		return err
	}
	if href == "" {
		return failf("$(%q) has no href", sel)
	}
	return w.driver.Navigate(ctx, href)
}

func (w *World) selectorSelected(ctx context.Context, sel string) error {
	el, err := w.selectFirst(ctx, sel)
	if err != nil {
		return err
	}
	on, err := el.IsSelected(ctx)
	if err != nil {
		return err
	}
	if !on {
		return failf("expected $(%q) to be selected", sel)
	}
	return nil
}

// selectorSelect opens the option's select and clicks the option.
func (w *World) selectorSelect(ctx context.Context, sel string) error {
	opt, err := w.selectFirst(ctx, sel)
	if err != nil {
		return err
	}
	parents, err := w.finder.Parents(ctx, sel)
	if err != nil {
		return err
	}
	if len(parents) == 0 {
		return failf("$(%q) has no parent", sel)
	}
	if err := parents[0].Click(ctx); err != nil {
		return err
	}
	if err := opt.Click(ctx); err != nil {
		return err
	}
	on, err := opt.IsSelected(ctx)
	if err != nil {
		return err
	}
	if !on {
		return failf("$(%q) did not become selected", sel)
	}
	return nil
}
