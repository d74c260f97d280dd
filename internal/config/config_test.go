// File: internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "webstep", cfg.Logger().ServiceName)
	assert.Equal(t, BackendCDP, cfg.Browser().Backend)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser().OperationTimeout)
	assert.Equal(t, 15*time.Second, cfg.Wait().Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Wait().Interval)
	assert.Equal(t, []string{"features"}, cfg.Run().Paths)
	assert.Equal(t, 1, cfg.Run().Concurrency)
	assert.True(t, cfg.Run().Strict)
	assert.Empty(t, cfg.Pages())
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate(), "A valid config should not produce a validation error")

		badBackend := *cfg
		badBackend.BrowserCfg.Backend = "netscape"
		err := badBackend.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.backend must be one of")

		badConcurrency := *cfg
		badConcurrency.RunCfg.Concurrency = 0
		err = badConcurrency.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run.concurrency must be a positive integer")

		badTimeout := *cfg
		badTimeout.BrowserCfg.OperationTimeout = -time.Second
		assert.Error(t, badTimeout.Validate())
	})

	t.Run("Wait Validation", func(t *testing.T) {
		valid := WaitConfig{Timeout: time.Second, Interval: 10 * time.Millisecond}
		assert.NoError(t, valid.Validate())

		zeroTimeout := valid
		zeroTimeout.Timeout = 0
		assert.NoError(t, zeroTimeout.Validate(), "a zero timeout means a single attempt")

		noInterval := valid
		noInterval.Interval = 0
		err := noInterval.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interval must be a positive duration")

		negative := valid
		negative.Timeout = -time.Second
		assert.Error(t, negative.Validate())
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
browser:
  backend: rod
  stealth: true
  args: ["--lang=de-DE"]
wait:
  timeout: 2s
run:
  tags: "@smoke"
pages:
  shop: "https://shop.example.com/"
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, BackendRod, cfg.Browser().Backend)
		assert.True(t, cfg.Browser().Stealth)
		assert.Equal(t, []string{"--lang=de-DE"}, cfg.Browser().Args)
		assert.Equal(t, 2*time.Second, cfg.Wait().Timeout)
		assert.Equal(t, 200*time.Millisecond, cfg.Wait().Interval, "defaults survive a partial section")
		assert.Equal(t, "@smoke", cfg.Run().Tags)
		assert.Equal(t, "https://shop.example.com/", cfg.Pages()["shop"])
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("run.concurrency", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "run.concurrency must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader("browser:\n  backend: rod\n")))

		t.Setenv("WEBSTEP_BROWSER_BACKEND", "static")
		t.Setenv("WEBSTEP_WAIT_TIMEOUT", "3s")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, BackendStatic, cfg.Browser().Backend, "the environment overrides the config file")
		assert.Equal(t, 3*time.Second, cfg.Wait().Timeout)
	})
}

func TestPageURL(t *testing.T) {
	t.Run("URLs are kept", func(t *testing.T) {
		for _, in := range []string{"http://localhost:8000/", "about:blank", "file:///tmp/x.html"} {
			got, err := PageURL(in)
			require.NoError(t, err)
			assert.Equal(t, in, got)
		}
	})

	t.Run("Relative paths become file URLs", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)

		got, err := PageURL("site/index.html")
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(wd, "site", "index.html")), got)
	})

	t.Run("Home directory is expanded", func(t *testing.T) {
		home, err := homedir.Dir()
		if err != nil {
			t.Skip("no home directory")
		}
		got, err := PageURL("~/pages/a.html")
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(home, "pages", "a.html")), got)
	})

	t.Run("Pages copy is detached", func(t *testing.T) {
		cfg := &Config{PagesCfg: map[string]string{"home": "http://a/"}}
		p := cfg.Pages()
		p["home"] = "http://b/"
		assert.Equal(t, "http://a/", cfg.Pages()["home"])
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/webstep.log
  colors:
    info: blue
browser:
  window_width: 1920
  operation_timeout: 5s
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/webstep.log", cfg.Logger().LogFile)
	assert.Equal(t, "blue", cfg.Logger().Colors.Info)
	assert.Equal(t, "red", cfg.Logger().Colors.Error)
	assert.Equal(t, 1920, cfg.Browser().WindowWidth)
	assert.Equal(t, 800, cfg.Browser().WindowHeight)
	assert.Equal(t, 5*time.Second, cfg.Browser().OperationTimeout)
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetRunPaths([]string{"a.feature"})
	cfg.SetRunTags("~@wip")
	cfg.SetRunFormat("progress")
	cfg.SetBrowserBackend(BackendPlaywright)
	cfg.SetBrowserHeadless(false)

	assert.Equal(t, []string{"a.feature"}, cfg.Run().Paths)
	assert.Equal(t, "~@wip", cfg.Run().Tags)
	assert.Equal(t, "progress", cfg.Run().Format)
	assert.Equal(t, BackendPlaywright, cfg.Browser().Backend)
	assert.False(t, cfg.Browser().Headless)
}
