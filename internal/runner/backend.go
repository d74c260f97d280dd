// File: internal/runner/backend.go
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/internal/config"
	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/cdp"
	"github.com/xkilldash9x/webstep/pkg/browser/pwdriver"
	"github.com/xkilldash9x/webstep/pkg/browser/rodriver"
	"github.com/xkilldash9x/webstep/pkg/browser/static"
)

// Backend opens one browser session per scenario and owns whatever
// process those sessions live in.
type Backend interface {
	Open(ctx context.Context) (browser.Driver, error)
	Shutdown(ctx context.Context) error
}

var (
	_ Backend = (*cdp.Manager)(nil)
	_ Backend = (*rodriver.Manager)(nil)
	_ Backend = (*pwdriver.Manager)(nil)
	_ Backend = staticBackend{}
)

// NewBackend builds the backend named by cfg.Backend. No browser is
// launched until the first Open.
func NewBackend(cfg config.BrowserConfig, logger *zap.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendCDP:
		return cdp.NewManager(cdp.Options{
			Headless:         cfg.Headless,
			Stealth:          cfg.Stealth,
			Args:             cfg.Args,
			ExecPath:         cfg.ExecPath,
			WindowWidth:      cfg.WindowWidth,
			WindowHeight:     cfg.WindowHeight,
			UserAgent:        cfg.UserAgent,
			OperationTimeout: cfg.OperationTimeout,
		}, logger), nil
	case config.BackendRod:
		return rodriver.NewManager(rodriver.Options{
			Headless:         cfg.Headless,
			Stealth:          cfg.Stealth,
			RemoteURL:        cfg.RemoteURL,
			Args:             cfg.Args,
			ExecPath:         cfg.ExecPath,
			WindowWidth:      cfg.WindowWidth,
			WindowHeight:     cfg.WindowHeight,
			UserAgent:        cfg.UserAgent,
			OperationTimeout: cfg.OperationTimeout,
		}, logger), nil
	case config.BackendPlaywright:
		return pwdriver.NewManager(pwdriver.Options{
			Headless:         cfg.Headless,
			Args:             cfg.Args,
			ExecPath:         cfg.ExecPath,
			Install:          cfg.Install,
			WindowWidth:      cfg.WindowWidth,
			WindowHeight:     cfg.WindowHeight,
			UserAgent:        cfg.UserAgent,
			OperationTimeout: cfg.OperationTimeout,
		}, logger), nil
	case config.BackendStatic:
		return staticBackend{logger: logger.Named("static")}, nil
	}
	return nil, fmt.Errorf("unknown browser backend %q", cfg.Backend)
}

// staticBackend serves scenarios from parsed HTML without a browser.
type staticBackend struct {
	logger *zap.Logger
}

func (b staticBackend) Open(ctx context.Context) (browser.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return static.New(static.WithLogger(b.logger)), nil
}

func (staticBackend) Shutdown(context.Context) error { return nil }
