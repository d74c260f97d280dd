// File: cmd/steps.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/webstep/pkg/steps"
)

// newStepsCmd creates the `steps` command, which lists every step pattern
// a feature file can use.
func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "Lists the available step patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, p := range steps.Patterns() {
				if _, err := fmt.Fprintln(out, p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
