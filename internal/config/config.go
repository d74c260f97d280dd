// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// WEBSTEP_BROWSER_BACKEND.
const EnvPrefix = "WEBSTEP"

// Supported browser backends.
const (
	BackendCDP        = "cdp"
	BackendRod        = "rod"
	BackendPlaywright = "playwright"
	BackendStatic     = "static"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Wait() WaitConfig
	Pages() map[string]string
	Run() RunConfig

	// Run overrides coming from CLI flags.
	SetRunPaths([]string)
	SetRunTags(string)
	SetRunFormat(string)
	SetBrowserBackend(string)
	SetBrowserHeadless(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	WaitCfg    WaitConfig        `mapstructure:"wait" yaml:"wait"`
	PagesCfg   map[string]string `mapstructure:"pages" yaml:"pages"`
	RunCfg     RunConfig         `mapstructure:"run" yaml:"run"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Wait() WaitConfig       { return c.WaitCfg }
func (c *Config) Run() RunConfig         { return c.RunCfg }

// Pages returns a copy of the alias table so callers cannot mutate the
// loaded configuration.
func (c *Config) Pages() map[string]string {
	out := make(map[string]string, len(c.PagesCfg))
	for k, v := range c.PagesCfg {
		out[k] = v
	}
	return out
}

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetRunPaths(p []string)     { c.RunCfg.Paths = p }
func (c *Config) SetRunTags(t string)        { c.RunCfg.Tags = t }
func (c *Config) SetRunFormat(f string)      { c.RunCfg.Format = f }
func (c *Config) SetBrowserBackend(b string) { c.BrowserCfg.Backend = b }
func (c *Config) SetBrowserHeadless(h bool)  { c.BrowserCfg.Headless = h }

// LoggerConfig defines all the settings for the logging system.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects and tunes the browser backend scenarios run in.
type BrowserConfig struct {
	Backend          string        `mapstructure:"backend" yaml:"backend"`
	Headless         bool          `mapstructure:"headless" yaml:"headless"`
	Stealth          bool          `mapstructure:"stealth" yaml:"stealth"`
	Args             []string      `mapstructure:"args" yaml:"args"`
	ExecPath         string        `mapstructure:"exec_path" yaml:"exec_path"`
	WindowWidth      int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight     int           `mapstructure:"window_height" yaml:"window_height"`
	UserAgent        string        `mapstructure:"user_agent" yaml:"user_agent"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	HelperScriptPath string        `mapstructure:"helper_script_path" yaml:"helper_script_path"`
	// RemoteURL attaches the rod backend to an already running browser.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url"`
	// Install lets the playwright backend download its driver and Chromium.
	Install bool `mapstructure:"install" yaml:"install"`
}

// WaitConfig holds the default polling parameters for waiting steps.
type WaitConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// RunConfig controls which features run and how godog reports them.
type RunConfig struct {
	Paths       []string `mapstructure:"paths" yaml:"paths"`
	Format      string   `mapstructure:"format" yaml:"format"`
	Tags        string   `mapstructure:"tags" yaml:"tags"`
	Strict      bool     `mapstructure:"strict" yaml:"strict"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
}

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webstep")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.backend", BackendCDP)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.stealth", false)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 800)
	v.SetDefault("browser.operation_timeout", "30s")
	v.SetDefault("browser.install", false)

	// -- Wait --
	v.SetDefault("wait.timeout", "15s")
	v.SetDefault("wait.interval", "200ms")

	// -- Run --
	v.SetDefault("run.paths", []string{"features"})
	v.SetDefault("run.format", "pretty")
	v.SetDefault("run.strict", true)
	v.SetDefault("run.concurrency", 1)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	pages, err := expandPages(cfg.PagesCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.PagesCfg = pages

	if cfg.BrowserCfg.HelperScriptPath != "" {
		p, err := homedir.Expand(cfg.BrowserCfg.HelperScriptPath)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: browser.helper_script_path: %w", err)
		}
		cfg.BrowserCfg.HelperScriptPath = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPages turns every alias that is not already a URL into an absolute
// file:// URL, expanding a leading "~".
func expandPages(pages map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(pages))
	for alias, target := range pages {
		u, err := PageURL(target)
		if err != nil {
			return nil, fmt.Errorf("pages.%s: %w", alias, err)
		}
		out[alias] = u
	}
	return out, nil
}

// PageURL returns target unchanged when it carries a scheme, otherwise it
// treats target as a local path and returns its file:// URL.
func PageURL(target string) (string, error) {
	if u, err := url.Parse(target); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return target, nil
	}
	p, err := homedir.Expand(target)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.BrowserCfg.Backend {
	case BackendCDP, BackendRod, BackendPlaywright, BackendStatic:
	default:
		return fmt.Errorf("browser.backend must be one of cdp, rod, playwright, static; got %q", c.BrowserCfg.Backend)
	}
	if c.BrowserCfg.OperationTimeout < 0 {
		return fmt.Errorf("browser.operation_timeout must not be negative")
	}
	if err := c.WaitCfg.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	if c.RunCfg.Concurrency <= 0 {
		return fmt.Errorf("run.concurrency must be a positive integer")
	}
	return nil
}

// Validate checks the polling parameters.
func (w *WaitConfig) Validate() error {
	if w.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if w.Interval <= 0 {
		return fmt.Errorf("interval must be a positive duration")
	}
	return nil
}
