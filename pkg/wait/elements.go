// File: pkg/wait/elements.go
package wait

import (
	"context"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/fields"
)

// Elements waits for xpath to match at least one element and returns the
// matches from the last attempt. An empty slice means the wait timed out.
func Elements(ctx context.Context, cfg Config, q browser.Querier, xpath string) ([]browser.Element, error) {
	return Poll(ctx, cfg, func(ctx context.Context) ([]browser.Element, bool, error) {
		els, err := q.FindElements(ctx, xpath)
		return els, len(els) > 0, err
	})
}

// Visible waits for the first match of xpath to be displayed. It returns
// that element, or nil when nothing visible turned up in time.
func Visible(ctx context.Context, cfg Config, q browser.Querier, xpath string) (browser.Element, error) {
	return Poll(ctx, cfg, func(ctx context.Context) (browser.Element, bool, error) {
		return firstDisplayed(ctx, q, xpath, false)
	})
}

// Content waits for a displayed element whose own text contains text.
func Content(ctx context.Context, cfg Config, q browser.Querier, text string) (browser.Element, error) {
	xp := fields.ContentXPath(text)
	return Poll(ctx, cfg, func(ctx context.Context) (browser.Element, bool, error) {
		return firstDisplayed(ctx, q, xp, true)
	})
}

// firstDisplayed evaluates xpath once. With all set, every match is
// considered; otherwise only the first.
func firstDisplayed(ctx context.Context, q browser.Querier, xpath string, all bool) (browser.Element, bool, error) {
	els, err := q.FindElements(ctx, xpath)
	if err != nil || len(els) == 0 {
		return nil, false, err
	}
	if !all {
		els = els[:1]
	}
	for _, el := range els {
		shown, err := el.IsDisplayed(ctx)
		if err != nil {
			return nil, false, err
		}
		if shown {
			return el, true, nil
		}
	}
	return nil, false, nil
}
