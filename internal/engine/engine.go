package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/manifest"
	"github.com/crateops/cargo-edit/internal/workspace"
)

// Registry looks up published crate versions.
type Registry interface {
	LatestVersion(ctx context.Context, name string, allowPrerelease bool) (*semver.Version, error)
}

// SourceInspector learns the crate name provided by a git or path source.
type SourceInspector interface {
	CrateName(ctx context.Context, src dependency.Source) (string, error)
}

// Reporter receives every change as it is made.
type Reporter interface {
	Report(Change)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Change)

// Report calls f(c).
func (f ReporterFunc) Report(c Change) { f(c) }

// Action names what happened to a dependency.
type Action string

const (
	ActionAdd     Action = "add"
	ActionUpdate  Action = "update"
	ActionRemove  Action = "remove"
	ActionUpgrade Action = "upgrade"
	ActionSort    Action = "sort"
)

// Change is one edit made (or, on a dry run, that would be made).
type Change struct {
	Action   Action
	Manifest string
	Section  dependency.Section
	// Name is the crate name; empty for ActionSort.
	Name string
	Old  string
	New  string
}

// Failure is a per-item error. Name is empty when the failure concerns the
// whole manifest, such as a failed write.
type Failure struct {
	Name     string
	Manifest string
	Err      error
}

func (f Failure) Error() string {
	switch {
	case f.Name != "" && f.Manifest != "":
		return fmt.Sprintf("%s (%s): %v", f.Name, f.Manifest, f.Err)
	case f.Name != "":
		return fmt.Sprintf("%s: %v", f.Name, f.Err)
	case f.Manifest != "":
		return fmt.Sprintf("%s: %v", f.Manifest, f.Err)
	default:
		return f.Err.Error()
	}
}

func (f Failure) Unwrap() error { return f.Err }

// Result aggregates the outcome of one verb over every target manifest.
type Result struct {
	Changes  []Change
	Failures []Failure
	// Written lists the manifests that were rewritten.
	Written []string
	DryRun  bool
}

// Err joins every failure, or returns nil when there were none.
func (r *Result) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Target selects the manifests an operation runs against.
type Target struct {
	// ManifestPath is a Cargo.toml or a directory to search upward from;
	// empty means the working directory.
	ManifestPath string
	// All extends the operation to every workspace member.
	All bool
}

// Engine runs operations against manifests.
type Engine struct {
	registry  Registry
	inspector SourceInspector
	logger    *log.Logger
	reporter  Reporter
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithReporter sets the receiver of change notifications.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

// New creates an Engine backed by the given collaborators.
func New(reg Registry, insp SourceInspector, opts ...Option) *Engine {
	e := &Engine{
		registry:  reg,
		inspector: insp,
		logger:    log.New(io.Discard),
		reporter:  ReporterFunc(func(Change) {}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// load resolves and reads every target manifest. Any failure here aborts
// the operation before anything is written.
func (e *Engine) load(t Target) ([]*manifest.LocalManifest, error) {
	root, err := manifest.Find(t.ManifestPath)
	if err != nil {
		return nil, err
	}
	paths, err := workspace.ResolveTargets(root, t.All)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("resolved targets", "root", root, "count", len(paths))
	return workspace.Load(paths)
}

func (e *Engine) record(res *Result, c Change) {
	res.Changes = append(res.Changes, c)
	e.reporter.Report(c)
}

// commit writes lm unless this is a dry run. A write failure is recorded
// and does not stop later manifests.
func (e *Engine) commit(res *Result, lm *manifest.LocalManifest) {
	if res.DryRun {
		return
	}
	wrote, err := lm.Write()
	if err != nil {
		e.logger.Error("writing manifest", "path", lm.Path, "err", err)
		res.Failures = append(res.Failures, Failure{Manifest: lm.Path, Err: err})
		return
	}
	if wrote {
		e.logger.Debug("wrote manifest", "path", lm.Path)
		res.Written = append(res.Written, lm.Path)
	}
}
