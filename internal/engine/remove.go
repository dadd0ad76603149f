package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/errs"
)

// RemoveRequest describes a remove operation. Removal only ever looks in
// Section; a crate present in another table is not found.
type RemoveRequest struct {
	Target
	Crates  []string
	Section dependency.Section
	Strict  bool
	DryRun  bool
}

// Remove deletes dependencies from every target manifest. Across a
// workspace, a crate is reported missing only when no target had it.
func (e *Engine) Remove(ctx context.Context, req RemoveRequest) (*Result, error) {
	if len(req.Crates) == 0 {
		return nil, fmt.Errorf("%w: no crates given", errs.ErrConflict)
	}
	targets, err := e.load(req.Target)
	if err != nil {
		return nil, err
	}

	res := &Result{DryRun: req.DryRun}
	var names []string
	for _, name := range req.Crates {
		if err := dependency.ValidateName(name); err != nil {
			res.Failures = append(res.Failures, Failure{Name: name, Err: err})
			if req.Strict {
				return res, nil
			}
			continue
		}
		names = append(names, name)
	}

	removed := make(map[string]bool)
	missing := make(map[string]Failure)
	for _, lm := range targets {
		before := len(res.Failures)
		for _, name := range names {
			dep, err := lm.Remove(req.Section, name)
			switch {
			case errors.Is(err, errs.ErrNotFound) && len(targets) > 1:
				if _, ok := missing[name]; !ok {
					missing[name] = Failure{Name: name, Manifest: lm.Path, Err: err}
				}
				continue
			case err != nil:
				res.Failures = append(res.Failures, Failure{Name: name, Manifest: lm.Path, Err: err})
				continue
			}
			removed[name] = true
			e.record(res, Change{
				Action:   ActionRemove,
				Manifest: lm.Path,
				Section:  req.Section,
				Name:     name,
				Old:      describe(dep),
			})
		}
		if req.Strict && len(res.Failures) > before {
			return res, nil
		}
		e.commit(res, lm)
	}

	for _, name := range names {
		if f, ok := missing[name]; ok && !removed[name] {
			res.Failures = append(res.Failures, f)
		}
	}
	return res, nil
}
