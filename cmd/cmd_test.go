// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webstep/internal/config"
	"github.com/xkilldash9x/webstep/internal/observability"
	"github.com/xkilldash9x/webstep/pkg/steps"
)

const testPage = `<html><head><title>Landing</title></head>
<body><p>Welcome aboard</p></body></html>`

// executeCommand runs a fresh command tree and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeProject lays out a config file, a page and a feature in a temp dir
// and returns the config path and the feature directory.
func writeProject(t *testing.T, feature string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	page := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte(testPage), 0o600))

	features := filepath.Join(dir, "features")
	require.NoError(t, os.Mkdir(features, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(features, "landing.feature"), []byte(feature), 0o600))

	cfgFile := filepath.Join(dir, "webstep.yaml")
	content := "logger:\n  level: fatal\nbrowser:\n  backend: static\nwait:\n  timeout: 0s\npages:\n  landing: " + page + "\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o600))
	return cfgFile, features
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "webstep version "+Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "webstep version "+Version)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "webstep runs browser behavior features")
}

func TestStepsCmd(t *testing.T) {
	out, err := executeCommand(t, "steps")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, steps.Patterns(), lines)
}

func TestRunCmd(t *testing.T) {
	t.Run("passing suite", func(t *testing.T) {
		cfgFile, features := writeProject(t, `Feature: Landing
  Scenario: Greeting
    Given I visit "landing"
    Then I should see "Welcome aboard"
    And The page title should be "Landing"
`)
		out, err := executeCommand(t, "--config", cfgFile, "run", "--format", "progress", features)
		require.NoError(t, err, out)
		assert.Contains(t, out, "1 scenarios (1 passed)")
	})

	t.Run("failing suite exits non-zero", func(t *testing.T) {
		cfgFile, features := writeProject(t, `Feature: Landing
  Scenario: Wrong text
    Given I visit "landing"
    Then I should see "Goodbye"
`)
		_, err := executeCommand(t, "--config", cfgFile, "run", "--format", "progress", features)
		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr), "got %v", err)
		assert.Equal(t, 1, exitErr.Code)
	})

	t.Run("flags override the config file", func(t *testing.T) {
		cfgFile, features := writeProject(t, "Feature: Empty\n")
		_, err := executeCommand(t, "--config", cfgFile, "run", "--backend", "lynx", features)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.backend must be one of")
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "run")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)

	want := config.NewDefaultConfig()
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, want))
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 2", (&ExitError{Code: 2}).Error())
}
