package cli

import (
	"github.com/spf13/cobra"

	"github.com/crateops/cargo-edit/internal/config"
	"github.com/crateops/cargo-edit/internal/engine"
)

var (
	upgradeMethod          string
	upgradeAllowPrerelease bool
	upgradeSkipCompatible  bool
	upgradeStrict          bool
	upgradeDryRun          bool
)

func init() {
	upgradeCmd.Flags().StringVar(&upgradeMethod, "upgrade", "", "How to write new versions: exact, patch, minor, or all")
	upgradeCmd.Flags().BoolVar(&upgradeAllowPrerelease, "allow-prerelease", false, "Upgrade to prerelease versions")
	upgradeCmd.Flags().BoolVar(&upgradeSkipCompatible, "skip-compatible", false, "Leave requirements that already admit the latest version")
	upgradeCmd.Flags().BoolVar(&upgradeStrict, "strict", false, "Stop at the first failure without writing")
	upgradeCmd.Flags().BoolVarP(&upgradeDryRun, "dry-run", "n", false, "Print changes without writing any manifest")
	rootCmd.AddCommand(upgradeCmd)
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [crate[@version]]...",
	Short: "Upgrade dependency requirements to the latest releases",
	Long: `Rewrite version requirements to the latest registry releases.

With no crates every registry dependency in every table is upgraded,
target-specific tables included. Git, path, and workspace-inherited
dependencies are left alone. A crate given as name@version is pinned to
that requirement without consulting the registry.`,
	Example: `  cargo-edit upgrade
  cargo-edit upgrade serde --upgrade exact
  cargo-edit upgrade libc@0.2.150 --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := methodSetting(cmd, "upgrade", upgradeMethod)
		if err != nil {
			return err
		}
		req := engine.UpgradeRequest{
			Target:          target(),
			Crates:          args,
			Method:          method,
			AllowPrerelease: boolSetting(cmd, "allow-prerelease", upgradeAllowPrerelease, config.KeyAllowPrerelease),
			SkipCompatible:  upgradeSkipCompatible,
			Strict:          upgradeStrict,
			DryRun:          upgradeDryRun,
		}
		return run(cmd, func(e *engine.Engine) (*engine.Result, error) {
			return e.Upgrade(cmd.Context(), req)
		})
	},
}
