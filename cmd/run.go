// File: cmd/run.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webstep/internal/observability"
	"github.com/xkilldash9x/webstep/internal/runner"
)

// newRunCmd creates the `run` command. Its flags are bound to v so they
// override the config file and environment.
func newRunCmd(v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Runs feature files against a browser",
		Long: `Runs every scenario in the given feature files or directories, each in a
fresh browser session. Without arguments the paths from run.paths are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.SetRunPaths(args)
			}

			r, err := runner.New(cfg, observability.GetLogger(), runner.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return fmt.Errorf("failed to create runner: %w", err)
			}
			status, err := r.Run(ctx)
			if err != nil {
				return err
			}
			if status != runner.StatusPassed {
				observability.GetLogger().Debug("Suite did not pass.", zap.Int("status", status))
				return &ExitError{Code: status}
			}
			return nil
		},
	}

	flags := runCmd.Flags()
	flags.StringP("tags", "t", "", "tag expression selecting scenarios, e.g. \"@smoke && ~@wip\"")
	flags.StringP("format", "f", "", "godog formatter (pretty, progress, cucumber, junit)")
	flags.StringP("backend", "b", "", "browser backend (cdp, rod, playwright, static)")
	flags.Bool("headless", true, "run the browser without a window")
	flags.Bool("stealth", false, "hide automation fingerprints from pages")
	flags.Int("concurrency", 0, "number of scenarios run in parallel")
	flags.Bool("strict", true, "fail on pending or undefined steps")

	bindings := map[string]string{
		"run.tags":         "tags",
		"run.format":       "format",
		"browser.backend":  "backend",
		"browser.headless": "headless",
		"browser.stealth":  "stealth",
		"run.concurrency":  "concurrency",
		"run.strict":       "strict",
	}
	for key, name := range bindings {
		// Lookup cannot fail for flags defined above.
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return runCmd
}
