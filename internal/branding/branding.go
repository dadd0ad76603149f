// Package branding provides compile-time identity values for the CLI.
//
// The values live in branding.yaml next to this file and are baked into the
// binary with //go:embed.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	GitHubRepo  string `yaml:"github_repo"`
	RegistryURL string `yaml:"registry_url"`
}

func load() {
	once.Do(func() {
		defaults = brand{
			CLIName:     "cargo-edit",
			DisplayName: "cargo-edit",
			Description: "Edit Cargo.toml dependencies from the command line",
			HomeDir:     ".cargo-edit",
			EnvPrefix:   "CARGO_EDIT",
			GoModule:    "github.com/crateops/cargo-edit",
			GitHubRepo:  "crateops/cargo-edit",
			RegistryURL: "https://crates.io",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "cargo-edit").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".cargo-edit").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "CARGO_EDIT").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the "owner/repo" string.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// RegistryURL returns the default crate registry base URL.
func RegistryURL() string { load(); return defaults.RegistryURL }

// UserAgent returns the User-Agent sent to the registry.
func UserAgent(version string) string {
	load()
	return defaults.CLIName + "/" + version + " (https://github.com/" + defaults.GitHubRepo + ")"
}

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "CARGO_EDIT_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
