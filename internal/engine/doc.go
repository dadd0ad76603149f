// Package engine runs the add, remove, upgrade, and tidy operations over one
// manifest or a whole workspace. Every verb resolves its targets, loads them
// all up front, edits each manifest in memory, and writes it at most once.
// Per-dependency failures are collected into the Result instead of aborting
// the batch, unless the request is strict.
package engine
