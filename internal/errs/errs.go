// Package errs defines the error taxonomy shared by the manifest engine.
// Every failure returned by the engine wraps exactly one of these sentinels
// so callers can classify it with errors.Is.
package errs

import "errors"

var (
	// ErrParse reports a malformed requirement, crate name, or manifest document.
	ErrParse = errors.New("parse error")

	// ErrNotFound reports a crate or version missing from the registry, or a
	// dependency key missing from the requested table.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports mutually exclusive request fields or an invalid
	// kind/target/optional combination.
	ErrConflict = errors.New("conflicting request")

	// ErrNetwork reports an unreachable or misbehaving registry.
	ErrNetwork = errors.New("network error")

	// ErrIO reports a manifest that could not be read or written.
	ErrIO = errors.New("io error")

	// ErrInvalidManifest reports a document that is neither a package nor a
	// workspace manifest.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrVirtualManifest reports a package-only operation run against a
	// workspace root without a package of its own.
	ErrVirtualManifest = errors.New("virtual manifest")
)
