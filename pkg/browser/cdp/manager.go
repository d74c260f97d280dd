// File: pkg/browser/cdp/manager.go
package cdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

const (
	launchTimeout       = 30 * time.Second
	shutdownGracePeriod = 10 * time.Second
)

// Manager owns one Chrome process and opens an isolated tab for each
// scenario. The browser is launched lazily by the first Open.
type Manager struct {
	opts   Options
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	browserCtx    context.Context
	browserCancel context.CancelFunc

	initOnce sync.Once
	initErr  error

	mu      sync.Mutex
	drivers map[string]*Driver
	wg      sync.WaitGroup
}

// NewManager creates a manager. No process is started until Open.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		opts:    opts,
		logger:  logger.Named("cdp"),
		drivers: make(map[string]*Driver),
	}
}

// initialize starts Chrome and waits until it responds.
func (m *Manager) initialize() error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser...", zap.Bool("headless", m.opts.Headless), zap.Bool("stealth", m.opts.Stealth))

		// The process outlives any single scenario's context.
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), AllocatorOptions(m.opts)...)
		m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx, chromedp.WithLogf(m.logger.Sugar().Debugf))

		startCtx, cancel := context.WithTimeout(m.browserCtx, launchTimeout)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- chromedp.Run(m.browserCtx) }()
		select {
		case err := <-done:
			if err != nil {
				m.allocCancel()
				m.initErr = fmt.Errorf("browser failed to start: %w", err)
				return
			}
		case <-startCtx.Done():
			m.allocCancel()
			m.initErr = fmt.Errorf("browser failed to start within %s", launchTimeout)
			return
		}
		m.logger.Info("Browser launched.")
	})
	return m.initErr
}

// Open starts a new tab with the configured profile applied.
func (m *Manager) Open(ctx context.Context) (browser.Driver, error) {
	if err := m.initialize(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(m.browserCtx)
	d := newDriver(uuid.NewString(), tabCtx, cancel, m.opts, m.logger)
	if err := d.run(ctx, "open tab", applyProfile(m.opts, d.logger)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	m.wg.Add(1)
	d.onClose = func() {
		m.mu.Lock()
		delete(m.drivers, d.id)
		m.mu.Unlock()
		m.wg.Done()
	}
	m.mu.Lock()
	m.drivers[d.id] = d
	m.mu.Unlock()

	d.logger.Debug("Tab opened.")
	return d, nil
}

// Shutdown closes every open tab, waits for them within ctx's deadline and
// then terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.allocCancel == nil {
		return nil
	}
	m.logger.Info("Shutting down browser.")

	m.mu.Lock()
	open := make([]*Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		open = append(open, d)
	}
	m.mu.Unlock()
	for _, d := range open {
		_ = d.Close(ctx)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timed out waiting for tabs to close.", zap.Error(ctx.Err()))
	}

	// Ask Chrome to exit cleanly before the allocator kills it.
	closed := make(chan error, 1)
	go func() { closed <- chromedp.Cancel(m.browserCtx) }()
	select {
	case err := <-closed:
		if err != nil {
			m.logger.Debug("Browser close returned an error.", zap.Error(err))
		}
	case <-time.After(shutdownGracePeriod):
		m.logger.Warn("Browser did not close in time, killing it.")
	}
	m.browserCancel()
	m.allocCancel()
	return nil
}
