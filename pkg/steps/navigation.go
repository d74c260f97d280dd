// File: pkg/steps/navigation.go
package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/webstep/pkg/fields"
)

func (w *World) visit(ctx context.Context, u string) error {
	return w.driver.Navigate(ctx, w.lookupURL(u))
}

func (w *World) urlShouldBe(ctx context.Context, u string) error {
	want := w.lookupURL(u)
	got, err := w.driver.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if got != want {
		return failf("expected the browser to be at %q, but it is at %q", want, got)
	}
	return nil
}

func (w *World) urlShouldContain(ctx context.Context, part string) error {
	got, err := w.driver.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(got, part) {
		return failf("expected the URL %q to contain %q", got, part)
	}
	return nil
}

func (w *World) urlShouldNotContain(ctx context.Context, part string) error {
	got, err := w.driver.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(got, part) {
		return failf("expected the URL %q not to contain %q", got, part)
	}
	return nil
}

// clickLink clicks the link whose visible text is exactly text.
func (w *World) clickLink(ctx context.Context, text string) error {
	el, err := w.first(ctx, fmt.Sprintf("//a[normalize-space(.)=%s]", fields.Literal(strings.TrimSpace(text))))
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func (w *World) seeLinkWithURL(ctx context.Context, u string) error {
	return w.mustExist(ctx, fmt.Sprintf("//a[@href=%s]", fields.Literal(u)))
}

func (w *World) seeLinkToWithURL(ctx context.Context, text, u string) error {
	return w.mustExist(ctx, fmt.Sprintf("//a[@href=%s][./text()=%s]", fields.Literal(u), fields.Literal(text)))
}

func (w *World) seeLinkContaining(ctx context.Context, text, u string) error {
	return w.mustExist(ctx, fmt.Sprintf("//a[@href=%s][contains(., %s)]", fields.Literal(u), fields.Literal(text)))
}

func (w *World) titleShouldBe(ctx context.Context, title string) error {
	got, err := w.driver.Title(ctx)
	if err != nil {
		return err
	}
	if got != title {
		return failf("expected the page title %q, got %q", title, got)
	}
	return nil
}

func (w *World) switchToFrame(ctx context.Context, id string) error {
	frame, err := w.first(ctx, fields.IDXPath(id))
	if err != nil {
		return err
	}
	return w.driver.SwitchToFrame(ctx, frame)
}

func (w *World) switchToMain(ctx context.Context) error {
	return w.driver.SwitchToDefault(ctx)
}
