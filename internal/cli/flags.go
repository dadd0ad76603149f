package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crateops/cargo-edit/internal/config"
	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/version"
)

// sectionFlags selects a dependency table.
type sectionFlags struct {
	dev    bool
	build  bool
	target string
}

func (f *sectionFlags) register(cmd *cobra.Command, verb string) {
	cmd.Flags().BoolVarP(&f.dev, "dev", "D", false, verb+" development dependencies")
	cmd.Flags().BoolVarP(&f.build, "build", "B", false, verb+" build dependencies")
	cmd.Flags().StringVar(&f.target, "target", "", verb+" dependencies for a target platform, e.g. 'cfg(unix)'")
}

func (f *sectionFlags) section() (dependency.Section, error) {
	s := dependency.Section{Kind: dependency.Normal, Target: f.target}
	switch {
	case f.dev && f.build:
		return s, fmt.Errorf("%w: --dev and --build are mutually exclusive", errs.ErrConflict)
	case f.dev:
		s.Kind = dependency.Development
	case f.build:
		s.Kind = dependency.Build
	}
	return s, nil
}

// boolSetting returns the flag value when given, else the config value.
func boolSetting(cmd *cobra.Command, flag string, value bool, key string) bool {
	if cmd.Flags().Changed(flag) {
		return value
	}
	return config.Bool(key)
}

// methodSetting returns the upgrade method from the flag when given, else
// from config.
func methodSetting(cmd *cobra.Command, flag, value string) (version.UpgradeMethod, error) {
	if cmd.Flags().Changed(flag) {
		return version.ParseUpgradeMethod(value)
	}
	return config.UpgradeMethod()
}
