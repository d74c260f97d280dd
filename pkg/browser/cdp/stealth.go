// File: pkg/browser/cdp/stealth.go
package cdp

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// applyProfile prepares a fresh tab: window metrics always, and with
// Stealth set, the user agent override and the evasion script that runs
// before any page script.
func applyProfile(o Options, logger *zap.Logger) chromedp.Action {
	l := logger.Named("profile")
	tasks := chromedp.Tasks{setDeviceMetrics(o, l)}
	if o.Stealth {
		tasks = append(tasks, setUserAgent(o, l), injectEvasions(l))
	}
	return tasks
}

func injectEvasions(logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx); err != nil {
			logger.Error("Failed to register evasion script.", zap.Error(err))
			return fmt.Errorf("stealth: add script on new document: %w", err)
		}
		return nil
	})
}

func setUserAgent(o Options, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if o.UserAgent == "" {
			return nil
		}
		override := emulation.SetUserAgentOverride(o.UserAgent)
		if len(o.Languages) > 0 {
			override = override.WithAcceptLanguage(strings.Join(o.Languages, ","))
		}
		if err := override.Do(ctx); err != nil {
			logger.Error("Failed to set user agent override.", zap.Error(err))
			return fmt.Errorf("stealth: set user agent override: %w", err)
		}
		return nil
	})
}

func setDeviceMetrics(o Options, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if o.WindowWidth <= 0 || o.WindowHeight <= 0 {
			return nil
		}
		orientation := emulation.OrientationTypeLandscapePrimary
		if o.WindowHeight > o.WindowWidth {
			orientation = emulation.OrientationTypePortraitPrimary
		}
		err := emulation.SetDeviceMetricsOverride(int64(o.WindowWidth), int64(o.WindowHeight), 1.0, false).
			WithScreenOrientation(&emulation.ScreenOrientation{Type: orientation, Angle: 0}).
			Do(ctx)
		if err != nil {
			logger.Error("Failed to set device metrics override.", zap.Error(err))
			return fmt.Errorf("set device metrics: %w", err)
		}
		return nil
	})
}
