package engine

import (
	"context"
)

// TidyRequest describes a tidy operation.
type TidyRequest struct {
	Target
	DryRun bool
}

// Tidy sorts every dependency section of every target manifest. A dry run
// reports the sections that would change.
func (e *Engine) Tidy(ctx context.Context, req TidyRequest) (*Result, error) {
	targets, err := e.load(req.Target)
	if err != nil {
		return nil, err
	}

	res := &Result{DryRun: req.DryRun}
	for _, lm := range targets {
		for _, s := range lm.Sections() {
			var changed bool
			if req.DryRun {
				changed = !lm.IsSectionSorted(s)
			} else {
				changed = lm.SortSection(s)
			}
			if changed {
				e.record(res, Change{Action: ActionSort, Manifest: lm.Path, Section: s})
			}
		}
		e.commit(res, lm)
	}
	return res, nil
}
