package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/manifest"
	"github.com/crateops/cargo-edit/internal/version"
)

// AddRequest describes an add operation.
type AddRequest struct {
	Target
	// Crates are crate specs: "name" or "name@requirement". May be empty
	// when Git or Path is set; the name is then read from the source.
	Crates  []string
	Section dependency.Section

	Version string
	Git     string
	Branch  string
	Tag     string
	Rev     string
	Path    string

	Rename            string
	Optional          bool
	Features          []string
	NoDefaultFeatures bool
	Registry          string

	// Sort re-sorts the section after inserting.
	Sort            bool
	AllowPrerelease bool
	// Method formats versions found in the registry. A literal version
	// requirement is written as given.
	Method        version.UpgradeMethod
	AllowWildcard bool
	Strict        bool
	DryRun        bool
}

type resolvedCrate struct {
	name   string
	source dependency.Source
}

func (r AddRequest) validate() error {
	if r.Optional && r.Section.Kind != dependency.Normal {
		return fmt.Errorf("%w: --optional is only allowed for normal dependencies", errs.ErrConflict)
	}
	if r.Section.Target != "" && r.Section.Kind != dependency.Normal {
		return fmt.Errorf("%w: --target is only allowed for normal dependencies", errs.ErrConflict)
	}
	if r.Git != "" && r.Path != "" {
		return fmt.Errorf("%w: --git and --path are mutually exclusive", errs.ErrConflict)
	}

	refs := 0
	for _, ref := range []string{r.Branch, r.Tag, r.Rev} {
		if ref != "" {
			refs++
		}
	}
	if refs > 1 {
		return fmt.Errorf("%w: only one of --branch, --tag, or --rev may be given", errs.ErrConflict)
	}
	if refs > 0 && r.Git == "" {
		return fmt.Errorf("%w: --branch, --tag, and --rev require --git", errs.ErrConflict)
	}

	fromSource := r.Git != "" || r.Path != ""
	if fromSource && !acceptFromSource(r.Version) {
		return fmt.Errorf("%w: cannot give a version requirement together with --git or --path", errs.ErrConflict)
	}
	if len(r.Crates) == 0 && !fromSource {
		return fmt.Errorf("%w: no crates given", errs.ErrConflict)
	}
	if len(r.Crates) > 1 {
		single := []struct {
			flag string
			set  bool
		}{
			{"--rename", r.Rename != ""},
			{"--vers", r.Version != ""},
			{"--git", r.Git != ""},
			{"--path", r.Path != ""},
		}
		for _, f := range single {
			if f.set {
				return fmt.Errorf("%w: %s cannot be used with multiple crates", errs.ErrConflict, f.flag)
			}
		}
	}
	if r.Rename != "" {
		if err := dependency.ValidateName(r.Rename); err != nil {
			return err
		}
	}
	return nil
}

// acceptFromSource reports whether v is the sentinel that takes the version
// from a git or path source.
func acceptFromSource(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "*"
}

// Add inserts or updates dependencies in every target manifest.
func (e *Engine) Add(ctx context.Context, req AddRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	targets, err := e.load(req.Target)
	if err != nil {
		return nil, err
	}

	res := &Result{DryRun: req.DryRun}
	look := newLookups(e.registry)

	specs := req.Crates
	if len(specs) == 0 {
		specs = []string{""}
	}
	var crates []resolvedCrate
	for _, spec := range specs {
		c, err := e.resolveCrate(ctx, look, req, spec)
		if err != nil {
			name, _, _ := strings.Cut(spec, "@")
			if name == "" {
				name = req.Git + req.Path
			}
			res.Failures = append(res.Failures, Failure{Name: name, Err: err})
			if req.Strict {
				return res, nil
			}
			continue
		}
		crates = append(crates, c)
	}

	for _, lm := range targets {
		if lm.IsVirtual() {
			e.logger.Debug("skipping virtual manifest", "path", lm.Path)
			continue
		}
		before := len(res.Failures)
		for _, c := range crates {
			ins, err := lm.Insert(req.Section, c.name, req.patch(c, lm.Dir()), manifest.InsertOptions{Sort: req.Sort})
			if err != nil {
				res.Failures = append(res.Failures, Failure{Name: c.name, Manifest: lm.Path, Err: err})
				continue
			}
			change := Change{
				Action:   ActionAdd,
				Manifest: lm.Path,
				Section:  req.Section,
				Name:     c.name,
				New:      describe(ins.New),
			}
			if ins.Old != nil {
				change.Action = ActionUpdate
				change.Old = describe(*ins.Old)
			}
			e.record(res, change)
		}
		if req.Strict && len(res.Failures) > before {
			return res, nil
		}
		e.commit(res, lm)
	}
	return res, nil
}

func (e *Engine) resolveCrate(ctx context.Context, look *lookups, req AddRequest, spec string) (resolvedCrate, error) {
	name, ver, hasVer := strings.Cut(strings.TrimSpace(spec), "@")
	if req.Version != "" {
		if hasVer {
			return resolvedCrate{}, fmt.Errorf("%w: version given both in %q and with --vers", errs.ErrConflict, spec)
		}
		ver = req.Version
	}
	if name != "" {
		if err := dependency.ValidateName(name); err != nil {
			return resolvedCrate{}, err
		}
	}

	var src dependency.Source
	switch {
	case req.Git != "":
		if !acceptFromSource(ver) {
			return resolvedCrate{}, fmt.Errorf("%w: cannot give a version requirement together with --git", errs.ErrConflict)
		}
		src = dependency.GitSource(req.Git, req.Branch, req.Tag, req.Rev)
	case req.Path != "":
		if !acceptFromSource(ver) {
			return resolvedCrate{}, fmt.Errorf("%w: cannot give a version requirement together with --path", errs.ErrConflict)
		}
		abs, err := filepath.Abs(req.Path)
		if err != nil {
			return resolvedCrate{}, fmt.Errorf("%w: resolving %s: %w", errs.ErrIO, req.Path, err)
		}
		src = dependency.PathSource(abs)
	case hasVer || req.Version != "":
		var opts []version.ParseOption
		if req.AllowWildcard {
			opts = append(opts, version.AllowWildcard())
		}
		r, err := version.ParseRequirement(ver, opts...)
		if err != nil {
			return resolvedCrate{}, err
		}
		src = dependency.RegistrySource(r)
	default:
		v, fresh, err := look.latest(ctx, name, req.AllowPrerelease)
		if err != nil {
			return resolvedCrate{}, err
		}
		if fresh {
			e.logger.Debug("resolved latest version", "crate", name, "version", v)
		}
		method := req.Method
		if method == "" {
			method = version.DefaultUpgradeMethod
		}
		src = dependency.RegistrySource(version.FormatRequirement(v, method))
	}

	if name == "" {
		inferred, err := e.inspector.CrateName(ctx, src)
		if err != nil {
			return resolvedCrate{}, err
		}
		if err := dependency.ValidateName(inferred); err != nil {
			return resolvedCrate{}, err
		}
		name = inferred
	}
	return resolvedCrate{name: name, source: src}, nil
}

// patch builds the change for one manifest. Path sources are written
// relative to the manifest's directory.
func (r AddRequest) patch(c resolvedCrate, dir string) dependency.Patch {
	src := c.source
	if src.Kind == dependency.SourcePath {
		if rel, err := filepath.Rel(dir, src.Path); err == nil {
			src.Path = filepath.ToSlash(rel)
		}
	}

	p := dependency.Patch{Source: &src}
	if r.Optional {
		optional := true
		p.Optional = &optional
	}
	if r.Rename != "" {
		rename := r.Rename
		p.Rename = &rename
	}
	if r.NoDefaultFeatures {
		df := false
		p.DefaultFeatures = &df
	}
	if features := splitFeatures(r.Features); len(features) > 0 {
		p.Features = features
	}
	if r.Registry != "" {
		registry := r.Registry
		p.Registry = &registry
	}
	return p
}

// splitFeatures accepts features given as repeated values or as one
// space or comma separated list.
func splitFeatures(in []string) []string {
	var out []string
	for _, f := range in {
		out = append(out, strings.FieldsFunc(f, func(r rune) bool {
			return r == ',' || r == ' '
		})...)
	}
	return out
}

// describe renders a dependency's source for reports.
func describe(d dependency.Dependency) string {
	src := d.Source
	switch src.Kind {
	case dependency.SourceGit:
		s := src.Git
		for _, ref := range []string{src.Branch, src.Tag, src.Rev} {
			if ref != "" {
				s += "#" + ref
			}
		}
		return s
	case dependency.SourcePath:
		return src.Path
	case dependency.SourceWorkspace:
		return "workspace"
	default:
		return src.Requirement.String()
	}
}
