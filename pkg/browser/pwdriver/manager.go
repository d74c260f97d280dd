// File: pkg/browser/pwdriver/manager.go

// Package pwdriver is a browser backend built on playwright-go. Every
// scenario runs in a fresh browser context.
package pwdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

const playwrightInstallTimeout = 5 * time.Minute

// Options configures the playwright driver and the Chromium it launches.
type Options struct {
	Headless bool
	Args     []string
	ExecPath string

	// Install downloads the playwright driver and Chromium before the
	// first launch.
	Install bool

	WindowWidth  int
	WindowHeight int
	UserAgent    string

	OperationTimeout time.Duration
}

// Manager handles the playwright driver and browser lifecycle.
type Manager struct {
	opts   Options
	logger *zap.Logger

	pw      *playwright.Playwright
	browser playwright.Browser

	mu      sync.RWMutex
	drivers map[string]*Driver
	wg      sync.WaitGroup

	initOnce sync.Once
	initErr  error
}

// NewManager creates a manager. Initialization is deferred until the
// first Open.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		opts:    opts,
		logger:  logger.Named("playwright"),
		drivers: make(map[string]*Driver),
	}
}

func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Initializing Playwright and launching browser...")

		if m.opts.Install {
			if err := m.ensureInstallation(ctx); err != nil {
				m.initErr = err
				return
			}
		}

		pw, err := playwright.Run()
		if err != nil {
			m.initErr = fmt.Errorf("failed to start playwright driver: %w", err)
			return
		}
		m.pw = pw

		b, err := pw.Chromium.Launch(m.prepareLaunchOptions())
		if err != nil {
			_ = pw.Stop()
			m.initErr = fmt.Errorf("failed to launch browser instance: %w", err)
			return
		}
		m.browser = b
		m.logger.Info("Browser launched.", zap.String("browser_version", b.Version()))
	})
	return m.initErr
}

func (m *Manager) ensureInstallation(ctx context.Context) error {
	m.logger.Info("Verifying Playwright browser installation...")
	installCtx, cancel := context.WithTimeout(ctx, playwrightInstallTimeout)
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			errs <- fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}
		errs <- nil
	}()

	select {
	case err := <-errs:
		return err
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

func (m *Manager) prepareLaunchOptions() playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
		Timeout:  playwright.Float(60000),
	}
	if m.opts.ExecPath != "" {
		opts.ExecutablePath = playwright.String(m.opts.ExecPath)
	}
	defaultArgs := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
	}
	opts.Args = append(defaultArgs, m.opts.Args...)
	return opts
}

// Open creates a browser context with one page.
func (m *Manager) Open(ctx context.Context) (browser.Driver, error) {
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if m.opts.WindowWidth > 0 && m.opts.WindowHeight > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: m.opts.WindowWidth, Height: m.opts.WindowHeight}
	}
	if m.opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(m.opts.UserAgent)
	}
	bctx, err := m.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, &browser.TransportError{Op: "create browser context", Err: err}
	}
	if m.opts.OperationTimeout > 0 {
		bctx.SetDefaultTimeout(float64(m.opts.OperationTimeout.Milliseconds()))
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, &browser.TransportError{Op: "create page", Err: err}
	}

	d := newDriver(uuid.NewString(), bctx, page, m.logger)
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
	return d, nil
}

// Shutdown closes all contexts, then the browser and the driver.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.pw == nil {
		return nil
	}
	m.logger.Info("Shutting down browser manager.")

	m.mu.RLock()
	open := make([]*Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		open = append(open, d)
	}
	m.mu.RUnlock()
	for _, d := range open {
		go func(d *Driver) {
			if err := d.Close(ctx); err != nil {
				m.logger.Warn("Error closing page during shutdown.", zap.String("page", d.id), zap.Error(err))
			}
		}(d)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for pages to close.", zap.Error(ctx.Err()))
	}

	var shutdownErr error
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			shutdownErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}
	if err := m.pw.Stop(); err != nil && shutdownErr == nil {
		shutdownErr = fmt.Errorf("failed to stop playwright driver: %w", err)
	}
	return shutdownErr
}
