package cli

import (
	"github.com/spf13/cobra"

	"github.com/crateops/cargo-edit/internal/config"
	"github.com/crateops/cargo-edit/internal/engine"
)

var (
	addSection           sectionFlags
	addVersion           string
	addGit               string
	addBranch            string
	addTag               string
	addRev               string
	addPath              string
	addRename            string
	addOptional          bool
	addFeatures          []string
	addNoDefaultFeatures bool
	addRegistry          string
	addSort              bool
	addAllowPrerelease   bool
	addMethod            string
	addAllowWildcard     bool
	addStrict            bool
	addDryRun            bool
)

func init() {
	addSection.register(addCmd, "Add as")
	addCmd.Flags().StringVar(&addVersion, "vers", "", "Version requirement to write instead of the latest release")
	addCmd.Flags().StringVar(&addGit, "git", "", "Git repository URL to take the crate from")
	addCmd.Flags().StringVar(&addBranch, "branch", "", "Git branch (requires --git)")
	addCmd.Flags().StringVar(&addTag, "tag", "", "Git tag (requires --git)")
	addCmd.Flags().StringVar(&addRev, "rev", "", "Git revision (requires --git)")
	addCmd.Flags().StringVar(&addPath, "path", "", "Local directory containing the crate")
	addCmd.Flags().StringVar(&addRename, "rename", "", "Key to write the dependency under")
	addCmd.Flags().BoolVar(&addOptional, "optional", false, "Mark the dependency optional")
	addCmd.Flags().StringArrayVar(&addFeatures, "features", nil, "Features to enable (comma or space separated, repeatable)")
	addCmd.Flags().BoolVar(&addNoDefaultFeatures, "no-default-features", false, "Disable the crate's default features")
	addCmd.Flags().StringVar(&addRegistry, "registry", "", "Alternative registry the crate is published to")
	addCmd.Flags().BoolVarP(&addSort, "sort", "s", false, "Sort the dependency table after adding")
	addCmd.Flags().BoolVar(&addAllowPrerelease, "allow-prerelease", false, "Consider prerelease versions when looking up the latest")
	addCmd.Flags().StringVar(&addMethod, "upgrade", "", "How to write registry versions: exact, patch, minor, or all")
	addCmd.Flags().BoolVar(&addAllowWildcard, "allow-wildcard", false, "Permit the unconstrained requirement \"*\"")
	addCmd.Flags().BoolVar(&addStrict, "strict", false, "Stop at the first failure without writing")
	addCmd.Flags().BoolVarP(&addDryRun, "dry-run", "n", false, "Print changes without writing any manifest")
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [crate[@version]]...",
	Short: "Add dependencies to a manifest",
	Long: `Add one or more dependencies to Cargo.toml.

Without a version the latest release is looked up in the registry and
written as a requirement shaped by --upgrade (minor by default, e.g. ^1.2.5).
An existing entry is updated in place rather than duplicated.`,
	Example: `  cargo-edit add serde serde_json
  cargo-edit add regex@1.5 --dev
  cargo-edit add tokio --features full,macros
  cargo-edit add --git https://github.com/rust-lang/regex --tag 1.10.0
  cargo-edit add --path ../my-crate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		section, err := addSection.section()
		if err != nil {
			return err
		}
		method, err := methodSetting(cmd, "upgrade", addMethod)
		if err != nil {
			return err
		}
		req := engine.AddRequest{
			Target:            target(),
			Crates:            args,
			Section:           section,
			Version:           addVersion,
			Git:               addGit,
			Branch:            addBranch,
			Tag:               addTag,
			Rev:               addRev,
			Path:              addPath,
			Rename:            addRename,
			Optional:          addOptional,
			Features:          addFeatures,
			NoDefaultFeatures: addNoDefaultFeatures,
			Registry:          addRegistry,
			Sort:              boolSetting(cmd, "sort", addSort, config.KeySort),
			AllowPrerelease:   boolSetting(cmd, "allow-prerelease", addAllowPrerelease, config.KeyAllowPrerelease),
			Method:            method,
			AllowWildcard:     addAllowWildcard,
			Strict:            addStrict,
			DryRun:            addDryRun,
		}
		return run(cmd, func(e *engine.Engine) (*engine.Result, error) {
			return e.Add(cmd.Context(), req)
		})
	},
}
