// Package dependency is the canonical model of one manifest dependency: its
// source (registry, git, path, or workspace-inherited), its flags, the table
// it lives in, and the rules for merging a requested change into an existing
// entry and for rendering it back in the most compact TOML form.
package dependency
