package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crateops/cargo-edit/internal/branding"
	"github.com/crateops/cargo-edit/internal/registry"
	"github.com/crateops/cargo-edit/internal/version"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Recognized configuration keys.
const (
	KeyUpgradeMethod   = "upgrade_method"
	KeySort            = "sort"
	KeyRegistryURL     = "registry_url"
	KeyCacheTTL        = "cache_ttl"
	KeyAllowPrerelease = "allow_prerelease"
)

// Keys lists every recognized key in display order.
var Keys = []string{KeyUpgradeMethod, KeySort, KeyRegistryURL, KeyCacheTTL, KeyAllowPrerelease}

// Dir returns the path to the config directory (~/.cargo-edit/).
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.cargo-edit/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyUpgradeMethod, string(version.DefaultUpgradeMethod))
	viper.SetDefault(KeySort, false)
	viper.SetDefault(KeyRegistryURL, branding.RegistryURL())
	viper.SetDefault(KeyCacheTTL, registry.DefaultCacheMaxAge.String())
	viper.SetDefault(KeyAllowPrerelease, false)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Bool returns a boolean config value.
func Bool(key string) bool {
	return viper.GetBool(key)
}

// UpgradeMethod returns the configured default upgrade method.
func UpgradeMethod() (version.UpgradeMethod, error) {
	m, err := version.ParseUpgradeMethod(Get(KeyUpgradeMethod))
	if err != nil {
		return "", fmt.Errorf("reading %s from %s: %w", KeyUpgradeMethod, FilePath(), err)
	}
	return m, nil
}

// CacheTTL returns how long registry responses are reused.
func CacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(Get(KeyCacheTTL))
	if err != nil {
		return 0, fmt.Errorf("reading %s from %s: %w", KeyCacheTTL, FilePath(), err)
	}
	return d, nil
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := validate(key, value); err != nil {
		return err
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func validate(key, value string) error {
	switch key {
	case KeyUpgradeMethod:
		_, err := version.ParseUpgradeMethod(value)
		return err
	case KeySort, KeyAllowPrerelease:
		if value != "true" && value != "false" {
			return fmt.Errorf("%s must be true or false, got %q", key, value)
		}
	case KeyCacheTTL:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
	case KeyRegistryURL:
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
		}
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}
