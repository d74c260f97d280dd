// File: pkg/wait/wait_test.go
package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Interval)
	assert.Equal(t, 3*time.Second, cfg.WithTimeout(3*time.Second).Timeout)
}

func TestPoll_TimeoutIsNotAnError(t *testing.T) {
	t.Parallel()
	cfg := Config{Timeout: 500 * time.Millisecond, Interval: 100 * time.Millisecond}

	calls := 0
	start := time.Now()
	got, err := Poll(context.Background(), cfg, func(context.Context) (bool, bool, error) {
		calls++
		return false, false, nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, got)
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond-cfg.Interval)
	assert.Less(t, elapsed, 500*time.Millisecond+2*cfg.Interval)
	assert.GreaterOrEqual(t, calls, 4)
}

func TestPoll_ReturnsOnFirstSuccess(t *testing.T) {
	t.Parallel()
	cfg := Config{Timeout: 5 * time.Second, Interval: 10 * time.Millisecond}

	calls := 0
	start := time.Now()
	got, err := Poll(context.Background(), cfg, func(context.Context) (int, bool, error) {
		calls++
		return calls, calls == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, 3, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPoll_ProbeErrorAborts(t *testing.T) {
	t.Parallel()
	boom := errors.New("element went stale")

	calls := 0
	_, err := Poll(context.Background(), DefaultConfig(), func(context.Context) (string, bool, error) {
		calls++
		return "", false, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "errors are never retried")
}

func TestPoll_ZeroTimeoutProbesOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Until(context.Background(), Config{}, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, got)
	assert.Equal(t, 1, calls)
}

func TestPoll_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Until(ctx, Config{Timeout: time.Minute, Interval: 20 * time.Millisecond}, func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}
