package engine

import (
	"context"

	"github.com/Masterminds/semver/v3"
)

// lookups memoizes registry answers for one invocation so each crate is
// queried once however many manifests and sections mention it.
type lookups struct {
	registry Registry
	results  map[lookupKey]lookupResult
}

type lookupKey struct {
	name       string
	prerelease bool
}

type lookupResult struct {
	version *semver.Version
	err     error
}

func newLookups(reg Registry) *lookups {
	return &lookups{registry: reg, results: make(map[lookupKey]lookupResult)}
}

// latest returns the latest version of name. The bool reports whether this
// call reached the registry.
func (l *lookups) latest(ctx context.Context, name string, allowPrerelease bool) (*semver.Version, bool, error) {
	key := lookupKey{name: name, prerelease: allowPrerelease}
	if r, ok := l.results[key]; ok {
		return r.version, false, r.err
	}
	v, err := l.registry.LatestVersion(ctx, name, allowPrerelease)
	l.results[key] = lookupResult{version: v, err: err}
	return v, true, err
}
