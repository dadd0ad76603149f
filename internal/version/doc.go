// Package version implements the semantic-version requirement algebra used by
// the manifest engine. It parses and formats Cargo requirement strings
// (^1.2.3, ~0.9, >=1,<2, 1.2.3) and turns a concrete registry version into a
// requirement according to an UpgradeMethod policy.
package version
