// File: pkg/steps/alerts.go
package steps

import (
	"context"
	"errors"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

func (w *World) acceptAlert(ctx context.Context) error {
	return w.driver.AcceptAlert(ctx)
}

func (w *World) dismissAlert(ctx context.Context) error {
	return w.driver.DismissAlert(ctx)
}

func (w *World) alertText(ctx context.Context, text string) error {
	got, err := w.driver.AlertText(ctx)
	if errors.Is(err, browser.ErrNoAlert) {
		return failf("expected an alert with text %q, but none is open", text)
	}
	if err != nil {
		return err
	}
	if got != text {
		return failf("expected an alert with text %q, got %q", text, got)
	}
	return nil
}

func (w *World) noAlert(ctx context.Context) error {
	got, err := w.driver.AlertText(ctx)
	if errors.Is(err, browser.ErrNoAlert) {
		return nil
	}
	if err != nil {
		return err
	}
	return failf("should not see an alert, but %q is shown", got)
}
