// Package config manages user-level settings stored at ~/.cargo-edit/config.yaml.
// Values can also come from CARGO_EDIT_* environment variables; command-line
// flags override both.
package config
