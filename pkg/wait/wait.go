// File: pkg/wait/wait.go

// Package wait turns instantaneous checks into bounded-retry waits.
package wait

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds how long Poll keeps retrying.
	DefaultTimeout = 15 * time.Second
	// DefaultInterval is the pause between two probe invocations.
	DefaultInterval = 200 * time.Millisecond
)

// Config controls a Poll.
type Config struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// DefaultConfig returns the standard 15s / 200ms polling configuration.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, Interval: DefaultInterval}
}

// WithTimeout returns a copy of c using timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

func (c Config) normalized() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	return c
}

// Probe performs one check. It returns the observed value, whether that
// value satisfies the wait, and an error that aborts the wait.
type Probe[T any] func(ctx context.Context) (T, bool, error)

// Poll invokes probe until it reports success or cfg.Timeout has elapsed
// since the first invocation, sleeping cfg.Interval between attempts.
//
// Running out of time is not an error: Poll returns the last observed
// value and a nil error, and the caller decides what a falsy result means.
// A probe error aborts immediately and is returned as is. Cancelling ctx
// aborts with ctx.Err().
func Poll[T any](ctx context.Context, cfg Config, probe Probe[T]) (T, error) {
	cfg = cfg.normalized()
	start := time.Now()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		v, ok, err := probe(ctx)
		if err != nil {
			return v, err
		}
		if ok {
			return v, nil
		}

		remaining := cfg.Timeout - time.Since(start)
		if remaining <= 0 {
			return v, nil
		}
		sleep := cfg.Interval
		if sleep > remaining {
			sleep = remaining
		}

		timer.Reset(sleep)
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-timer.C:
		}
	}
}

// Until is Poll for probes that only report a condition.
func Until(ctx context.Context, cfg Config, cond func(ctx context.Context) (bool, error)) (bool, error) {
	return Poll(ctx, cfg, func(ctx context.Context) (bool, bool, error) {
		ok, err := cond(ctx)
		return ok, ok, err
	})
}
