// File: pkg/browser/rodriver/manager.go

// Package rodriver is a browser backend built on go-rod. Each scenario
// gets its own incognito context so cookies and storage never leak
// between scenarios.
package rodriver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/pkg/browser"
)

// Options configures the launched browser.
type Options struct {
	Headless bool
	// Stealth opens pages through go-rod/stealth, which patches the usual
	// automation fingerprints before any page script runs.
	Stealth bool
	// RemoteURL connects to a running browser instead of launching one.
	RemoteURL string
	Args      []string
	ExecPath  string

	WindowWidth  int
	WindowHeight int
	UserAgent    string

	OperationTimeout time.Duration
}

// Manager owns one rod browser connection.
type Manager struct {
	opts   Options
	logger *zap.Logger

	initOnce sync.Once
	initErr  error
	lnch     *launcher.Launcher
	browser  *rod.Browser

	mu      sync.Mutex
	drivers map[string]*Driver
}

// NewManager creates a manager. The browser starts on the first Open.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		opts:    opts,
		logger:  logger.Named("rod"),
		drivers: make(map[string]*Driver),
	}
}

func (m *Manager) launcher() *launcher.Launcher {
	l := launcher.New().Headless(m.opts.Headless)
	if m.opts.ExecPath != "" {
		l = l.Bin(m.opts.ExecPath)
	}
	if m.opts.Stealth {
		l = l.Set("disable-blink-features", "AutomationControlled")
	}
	for _, arg := range m.opts.Args {
		name, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if found {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	return l
}

func (m *Manager) initialize() error {
	m.initOnce.Do(func() {
		wsURL := m.opts.RemoteURL
		if wsURL == "" {
			l := m.launcher()
			u, err := l.Launch()
			if err != nil {
				m.initErr = fmt.Errorf("rod: launch: %w", err)
				return
			}
			m.lnch = l
			wsURL = u
		}

		b := rod.New().ControlURL(wsURL)
		if err := b.Connect(); err != nil {
			m.initErr = fmt.Errorf("rod: connect: %w", err)
			if m.lnch != nil {
				m.lnch.Cleanup()
			}
			return
		}
		m.browser = b
		m.logger.Info("Browser connected.", zap.String("url", wsURL), zap.Bool("stealth", m.opts.Stealth))
	})
	return m.initErr
}

// Open creates an incognito context with one page in it.
func (m *Manager) Open(ctx context.Context) (browser.Driver, error) {
	if err := m.initialize(); err != nil {
		return nil, err
	}

	incognito, err := m.browser.Incognito()
	if err != nil {
		return nil, &browser.TransportError{Op: "create incognito context", Err: err}
	}

	var p *rod.Page
	if m.opts.Stealth {
		p, err = stealth.Page(incognito)
	} else {
		p, err = incognito.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = incognito.Close()
		return nil, &browser.TransportError{Op: "create page", Err: err}
	}

	if err := m.applyProfile(p); err != nil {
		_ = incognito.Close()
		return nil, err
	}

	d := newDriver(uuid.NewString(), incognito, p, m.opts.OperationTimeout, m.logger)
	d.onClose = func() {
		m.mu.Lock()
		delete(m.drivers, d.id)
		m.mu.Unlock()
	}
	m.mu.Lock()
	m.drivers[d.id] = d
	m.mu.Unlock()
	return d, nil
}

func (m *Manager) applyProfile(p *rod.Page) error {
	if m.opts.WindowWidth > 0 && m.opts.WindowHeight > 0 {
		err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             m.opts.WindowWidth,
			Height:            m.opts.WindowHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return &browser.TransportError{Op: "set viewport", Err: err}
		}
	}
	if m.opts.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: m.opts.UserAgent}); err != nil {
			return &browser.TransportError{Op: "set user agent", Err: err}
		}
	}
	return nil
}

// Shutdown closes all pages and the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.browser == nil {
		return nil
	}
	m.mu.Lock()
	open := make([]*Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		open = append(open, d)
	}
	m.mu.Unlock()
	for _, d := range open {
		_ = d.Close(ctx)
	}

	err := m.browser.Close()
	if m.lnch != nil {
		m.lnch.Cleanup()
	}
	m.logger.Info("Browser closed.")
	if err != nil {
		return fmt.Errorf("rod: close browser: %w", err)
	}
	return nil
}
