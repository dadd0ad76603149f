// Package manifest reads, edits, validates, and writes Cargo.toml manifests.
// Edits go through a structure-preserving document, so formatting and
// comments outside the touched entries survive a read-modify-write cycle.
// Before anything is written the rendered document is re-parsed and checked
// against the embedded JSON Schema of the dependency tables.
package manifest
