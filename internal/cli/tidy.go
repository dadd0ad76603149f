package cli

import (
	"github.com/spf13/cobra"

	"github.com/crateops/cargo-edit/internal/engine"
)

var tidyDryRun bool

func init() {
	tidyCmd.Flags().BoolVarP(&tidyDryRun, "dry-run", "n", false, "List unsorted tables without writing")
	rootCmd.AddCommand(tidyCmd)
}

var tidyCmd = &cobra.Command{
	Use:   "tidy",
	Short: "Sort every dependency table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := engine.TidyRequest{Target: target(), DryRun: tidyDryRun}
		return run(cmd, func(e *engine.Engine) (*engine.Result, error) {
			return e.Tidy(cmd.Context(), req)
		})
	},
}
