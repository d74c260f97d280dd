// File: pkg/browser/cdp/context.go
package cdp

import (
	"context"
	"time"
)

// CombineContext returns a context derived from session, so it carries the
// chromedp target values, that is also canceled when op is. session is the
// tab context and op the caller's operational context.
func CombineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(session)
	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// valueOnlyContext keeps the values of its parent but drops its deadline
// and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context with the values of ctx that is never canceled.
// Cleanup that must outlive a canceled scenario runs under it.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
