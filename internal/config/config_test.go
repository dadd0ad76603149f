package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/crateops/cargo-edit/internal/version"
)

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CARGO_EDIT_HOME", dir)
	viper.Reset()
	t.Cleanup(viper.Reset)
	Load()
	return dir
}

func TestDefaults(t *testing.T) {
	setup(t)

	m, err := UpgradeMethod()
	if err != nil || m != version.Minor {
		t.Errorf("UpgradeMethod() = %q, %v; want minor", m, err)
	}
	ttl, err := CacheTTL()
	if err != nil || ttl != 10*time.Minute {
		t.Errorf("CacheTTL() = %v, %v; want 10m", ttl, err)
	}
	if Bool(KeySort) {
		t.Error("sort should default to false")
	}
	if got := Get(KeyRegistryURL); got != "https://crates.io" {
		t.Errorf("registry_url = %q", got)
	}
}

func TestSetPersists(t *testing.T) {
	dir := setup(t)

	if err := Set(KeyUpgradeMethod, "patch"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := Set(KeySort, "true"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "upgrade_method: patch") {
		t.Errorf("config file =\n%s", data)
	}

	viper.Reset()
	Load()
	if m, _ := UpgradeMethod(); m != version.Patch {
		t.Errorf("reloaded upgrade_method = %q, want patch", m)
	}
	if !Bool(KeySort) {
		t.Error("reloaded sort = false, want true")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	setup(t)
	if err := Set(KeyUpgradeMethod, "patch"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARGO_EDIT_UPGRADE_METHOD", "exact")
	viper.Reset()
	Load()
	if m, _ := UpgradeMethod(); m != version.Exact {
		t.Errorf("UpgradeMethod() = %q, want exact from the environment", m)
	}
}

func TestSetRejectsInvalid(t *testing.T) {
	setup(t)

	tests := []struct{ key, value string }{
		{KeyUpgradeMethod, "major"},
		{KeySort, "yes"},
		{KeyCacheTTL, "soon"},
		{KeyRegistryURL, "crates.io"},
		{"colour", "red"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) succeeded, want error", tt.key, tt.value)
			}
		})
	}
	if _, err := os.Stat(FilePath()); !os.IsNotExist(err) {
		t.Error("rejected values should not create the config file")
	}
}
