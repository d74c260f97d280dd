// File: internal/runner/runner.go

// Package runner runs feature files against a configured browser backend
// using the webstep step library.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/internal/config"
	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/steps"
	"github.com/xkilldash9x/webstep/pkg/wait"
)

const shutdownTimeout = 30 * time.Second

// Exit statuses returned by godog.
const (
	StatusPassed  = 0
	StatusFailed  = 1
	StatusOptions = 2
)

type sessionKey struct{}

// SessionID returns the id the runner assigned to the scenario running in
// ctx, or "" outside a scenario.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Runner executes a godog suite with one browser session per scenario.
type Runner struct {
	cfg     config.Interface
	logger  *zap.Logger
	backend Backend
	output  io.Writer
	// features replace the configured paths when set.
	features []godog.Feature
}

// Option configures a Runner.
type Option func(*Runner)

// WithBackend uses b instead of building one from configuration. The
// runner still shuts it down.
func WithBackend(b Backend) Option {
	return func(r *Runner) { r.backend = b }
}

// WithOutput sends formatter output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.output = w }
}

// WithFeatures runs in-memory features instead of the configured paths.
func WithFeatures(features ...godog.Feature) Option {
	return func(r *Runner) { r.features = features }
}

// New creates a runner for cfg.
func New(cfg config.Interface, logger *zap.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{cfg: cfg, logger: logger.Named("runner"), output: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}
	if r.backend == nil {
		b, err := NewBackend(cfg.Browser(), logger)
		if err != nil {
			return nil, err
		}
		r.backend = b
	}
	return r, nil
}

// stepConfig assembles what the step library reads from configuration.
func (r *Runner) stepConfig() (steps.Config, error) {
	w := r.cfg.Wait()
	sc := steps.Config{
		Pages: r.cfg.Pages(),
		Wait:  wait.Config{Timeout: w.Timeout, Interval: w.Interval},
	}
	if path := r.cfg.Browser().HelperScriptPath; path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return sc, fmt.Errorf("read helper script: %w", err)
		}
		sc.HelperScript = string(src)
	}
	return sc, nil
}

// open is the per scenario Opener; it tags the session in the logs.
func (r *Runner) open(ctx context.Context) (browser.Driver, error) {
	d, err := r.backend.Open(ctx)
	if err != nil {
		r.logger.Error("Failed to open browser session.", zap.String("session_id", SessionID(ctx)), zap.Error(err))
		return nil, err
	}
	return d, nil
}

func (r *Runner) initializeScenario(stepCfg steps.Config) func(*godog.ScenarioContext) {
	return func(sc *godog.ScenarioContext) {
		var (
			logger  = r.logger
			started time.Time
		)
		sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
			id := uuid.NewString()
			logger = r.logger.With(zap.String("session_id", id), zap.String("scenario", s.Name))
			started = time.Now()
			logger.Info("Scenario started.", zap.String("uri", s.Uri))
			return context.WithValue(ctx, sessionKey{}, id), nil
		})

		steps.Register(sc, steps.NewWorld(r.open, stepCfg, r.logger.Named("steps")))

		sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
			fields := []zap.Field{zap.Duration("duration", time.Since(started))}
			if err != nil {
				logger.Warn("Scenario failed.", append(fields, zap.Error(err))...)
			} else {
				logger.Info("Scenario passed.", fields...)
			}
			return ctx, nil
		})
	}
}

// Run executes the suite and returns godog's exit status. The backend is
// shut down before Run returns, whatever the outcome.
func (r *Runner) Run(ctx context.Context) (int, error) {
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := r.backend.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("Backend shutdown failed.", zap.Error(err))
		}
	}()

	stepCfg, err := r.stepConfig()
	if err != nil {
		return StatusOptions, err
	}

	run := r.cfg.Run()
	opts := &godog.Options{
		Format:         run.Format,
		Paths:          run.Paths,
		Tags:           run.Tags,
		Strict:         run.Strict,
		Concurrency:    run.Concurrency,
		Output:         r.output,
		DefaultContext: ctx,
	}
	if len(r.features) > 0 {
		opts.Paths = nil
		opts.FeatureContents = r.features
	}

	r.logger.Info("Running features.",
		zap.Strings("paths", opts.Paths),
		zap.String("tags", run.Tags),
		zap.String("backend", r.cfg.Browser().Backend),
		zap.Int("concurrency", run.Concurrency))

	status := godog.TestSuite{
		Name:                "webstep",
		ScenarioInitializer: r.initializeScenario(stepCfg),
		Options:             opts,
	}.Run()

	r.logger.Info("Run finished.", zap.Int("status", status))
	if err := ctx.Err(); err != nil {
		return status, fmt.Errorf("run interrupted: %w", err)
	}
	return status, nil
}
