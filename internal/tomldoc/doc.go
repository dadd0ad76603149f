// Package tomldoc is a structure-preserving TOML document. It keeps the raw
// bytes of every table header, key/value entry, comment, and blank line, so a
// document that is parsed and re-emitted without edits is byte-identical to
// its input, and an edit only rewrites the entries it touches.
//
// Values are decoded with go-toml; the package itself only tracks where each
// entry starts and ends.
package tomldoc
