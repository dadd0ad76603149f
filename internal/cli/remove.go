package cli

import (
	"github.com/spf13/cobra"

	"github.com/crateops/cargo-edit/internal/engine"
)

var (
	rmSection sectionFlags
	rmStrict  bool
	rmDryRun  bool
)

func init() {
	rmSection.register(rmCmd, "Remove from")
	rmCmd.Flags().BoolVar(&rmStrict, "strict", false, "Stop at the first failure without writing")
	rmCmd.Flags().BoolVarP(&rmDryRun, "dry-run", "n", false, "Print changes without writing any manifest")
	rootCmd.AddCommand(rmCmd)
}

var rmCmd = &cobra.Command{
	Use:     "rm <crate>...",
	Aliases: []string{"remove"},
	Short:   "Remove dependencies from a manifest",
	Long: `Remove dependencies from one dependency table.

Only the selected table is searched: a crate listed under
[dev-dependencies] is not removed by a plain rm.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		section, err := rmSection.section()
		if err != nil {
			return err
		}
		req := engine.RemoveRequest{
			Target:  target(),
			Crates:  args,
			Section: section,
			Strict:  rmStrict,
			DryRun:  rmDryRun,
		}
		return run(cmd, func(e *engine.Engine) (*engine.Result, error) {
			return e.Remove(cmd.Context(), req)
		})
	},
}
