package cli

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/crateops/cargo-edit/internal/branding"
	"github.com/crateops/cargo-edit/internal/config"
	"github.com/crateops/cargo-edit/internal/engine"
	"github.com/crateops/cargo-edit/internal/registry"
	"github.com/crateops/cargo-edit/internal/source"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	manifestPath string
	allMembers   bool
	quiet        bool
	verbose      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest-path", "", "Path to the manifest to edit (defaults to the nearest Cargo.toml)")
	rootCmd.PersistentFlags().BoolVar(&allMembers, "all", false, "Edit every member of the workspace")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not print successful changes")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log registry and workspace activity")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` edits the dependency tables of Cargo.toml manifests in place,
keeping comments and formatting intact. It adds, removes, and upgrades
dependencies and sorts dependency tables, for one crate or a whole workspace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
	},
}

// errFailed is returned after per-item failures have already been printed.
var errFailed = errors.New("one or more operations failed")

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errFailed) {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func target() engine.Target {
	return engine.Target{ManifestPath: manifestPath, All: allMembers}
}

func newLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: branding.CLIName(),
		Level:  log.WarnLevel,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newEngine builds the engine a command runs against. Tests replace it.
var newEngine = func(cmd *cobra.Command, rep engine.Reporter) (*engine.Engine, error) {
	ttl, err := config.CacheTTL()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr())
	reg := registry.New(
		registry.WithBaseURL(config.Get(config.KeyRegistryURL)),
		registry.WithUserAgent(branding.UserAgent(buildVersion)),
		registry.WithCache(config.Dir(), ttl),
	)
	return engine.New(reg, source.New(),
		engine.WithLogger(logger),
		engine.WithReporter(rep),
	), nil
}

// run executes one engine operation and prints its outcome.
func run(cmd *cobra.Command, op func(*engine.Engine) (*engine.Result, error)) error {
	p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, allMembers)
	eng, err := newEngine(cmd, p)
	if err != nil {
		return err
	}
	res, err := op(eng)
	if err != nil {
		return err
	}
	return p.finish(cmd.Name(), res)
}
