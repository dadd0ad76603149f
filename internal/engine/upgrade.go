package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/version"
)

// UpgradeRequest describes an upgrade operation.
type UpgradeRequest struct {
	Target
	// Crates limits the upgrade to these crates; each may pin a
	// requirement as "name@requirement". Empty means every registry
	// dependency in every section, target tables included.
	Crates          []string
	Method          version.UpgradeMethod
	AllowPrerelease bool
	// SkipCompatible leaves a dependency alone when its requirement
	// already admits the latest version.
	SkipCompatible bool
	Strict         bool
	DryRun         bool
}

// Upgrade rewrites version requirements to the latest registry versions.
// Git, path, and workspace-inherited dependencies are skipped.
func (e *Engine) Upgrade(ctx context.Context, req UpgradeRequest) (*Result, error) {
	targets, err := e.load(req.Target)
	if err != nil {
		return nil, err
	}
	method := req.Method
	if method == "" {
		method = version.DefaultUpgradeMethod
	}

	res := &Result{DryRun: req.DryRun}
	var wanted []string
	selected := make(map[string]bool)
	pins := make(map[string]version.Requirement)
	for _, spec := range req.Crates {
		name, pin, hasPin := strings.Cut(strings.TrimSpace(spec), "@")
		if err := dependency.ValidateName(name); err != nil {
			res.Failures = append(res.Failures, Failure{Name: name, Err: err})
			continue
		}
		if hasPin {
			r, err := version.ParseRequirement(pin)
			if err != nil {
				res.Failures = append(res.Failures, Failure{Name: name, Err: err})
				continue
			}
			pins[name] = r
		}
		if !selected[name] {
			selected[name] = true
			wanted = append(wanted, name)
		}
	}
	if req.Strict && len(res.Failures) > 0 {
		return res, nil
	}

	look := newLookups(e.registry)
	seen := make(map[string]bool)
	for _, lm := range targets {
		before := len(res.Failures)
		for _, s := range lm.Sections() {
			entries, err := lm.Dependencies(s)
			if err != nil {
				res.Failures = append(res.Failures, Failure{Manifest: lm.Path, Err: err})
				continue
			}
			for _, entry := range entries {
				dep := entry.Dep
				if len(wanted) > 0 && !selected[dep.Name] {
					continue
				}
				seen[dep.Name] = true

				switch {
				case dep.Source.Kind != dependency.SourceRegistry:
					e.logger.Debug("skipping non-registry dependency", "crate", dep.Name, "source", dep.Source.Kind)
					continue
				case dep.Registry != "":
					e.logger.Debug("skipping alternative registry dependency", "crate", dep.Name, "registry", dep.Registry)
					continue
				case dep.Source.Requirement.IsZero():
					continue
				}

				newReq, ok := pins[dep.Name]
				if !ok {
					v, fresh, err := look.latest(ctx, dep.Name, req.AllowPrerelease)
					if err != nil {
						if fresh {
							res.Failures = append(res.Failures, Failure{Name: dep.Name, Manifest: lm.Path, Err: err})
						}
						continue
					}
					if req.SkipCompatible && dep.Source.Requirement.Matches(v) {
						e.logger.Debug("requirement already compatible", "crate", dep.Name, "requirement", dep.Source.Requirement, "latest", v)
						continue
					}
					newReq = version.FormatRequirement(v, method)
				}

				old := dep.Source.Requirement.String()
				if old == newReq.String() {
					continue
				}
				if !req.DryRun {
					if _, err := lm.SetRequirement(s, entry.Key, newReq); err != nil {
						res.Failures = append(res.Failures, Failure{Name: dep.Name, Manifest: lm.Path, Err: err})
						continue
					}
				}
				e.record(res, Change{
					Action:   ActionUpgrade,
					Manifest: lm.Path,
					Section:  s,
					Name:     dep.Name,
					Old:      old,
					New:      newReq.String(),
				})
			}
		}
		if req.Strict && len(res.Failures) > before {
			return res, nil
		}
		e.commit(res, lm)
	}

	for _, name := range wanted {
		if !seen[name] {
			res.Failures = append(res.Failures, Failure{
				Name: name,
				Err:  fmt.Errorf("%w: the dependency `%s` could not be found in any target manifest", errs.ErrNotFound, name),
			})
		}
	}
	return res, nil
}
