// Package cli defines the Cobra command tree for cargo-edit. Each file
// registers one top-level command (add, rm, upgrade, tidy, config, version)
// with the root command. Commands translate flags into engine requests and
// print the resulting changes; the editing itself lives in internal/engine.
package cli
