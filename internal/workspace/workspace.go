// Package workspace resolves which manifests an operation targets: the root
// manifest alone, or the root plus every workspace member.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/manifest"
)

// VirtualManifestMessage is reported when a command needs a package but the
// manifest only declares a workspace.
const VirtualManifestMessage = "Found virtual manifest, but this command requires running against an " +
	"actual package in this workspace. Try adding `--all`."

// ResolveTargets returns the manifest paths an operation runs against, root
// first. With all unset that is just the root, which must be a package.
// With all set the workspace members follow in declaration order; the
// matches of one glob are sorted so filesystem order never leaks into the
// result. A virtual root with no dependency tables is left out.
func ResolveTargets(rootManifestPath string, all bool) ([]string, error) {
	root, err := filepath.Abs(rootManifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %w", errs.ErrIO, rootManifestPath, err)
	}
	lm, err := manifest.Read(root)
	if err != nil {
		return nil, err
	}

	if !all {
		if lm.IsVirtual() {
			return nil, fmt.Errorf("%w: %s", errs.ErrVirtualManifest, VirtualManifestMessage)
		}
		return []string{root}, nil
	}

	var targets []string
	seen := make(map[string]bool)
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			targets = append(targets, path)
		}
	}
	if !lm.IsVirtual() || len(lm.Sections()) > 0 {
		add(root)
	} else {
		seen[root] = true
	}

	rootDir := filepath.Dir(root)
	members, exclude, _, err := lm.Workspace()
	if err != nil {
		return nil, fmt.Errorf("reading workspace of %s: %w", root, err)
	}
	excluded := func(dir string) bool {
		return isExcluded(rootDir, dir, exclude)
	}

	for _, member := range members {
		dirs, err := expandMember(rootDir, member)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if !excluded(dir) {
				add(filepath.Join(dir, manifest.FileName))
			}
		}
	}

	implicit, err := pathDependencies(lm)
	if err != nil {
		return nil, err
	}
	for _, dir := range implicit {
		if !isWithin(rootDir, dir) || excluded(dir) || !hasManifest(dir) {
			continue
		}
		add(filepath.Join(dir, manifest.FileName))
	}
	return targets, nil
}

// Load reads every path. Any unreadable or unparsable manifest fails the
// whole batch so nothing is written on a partial load.
func Load(paths []string) ([]*manifest.LocalManifest, error) {
	out := make([]*manifest.LocalManifest, 0, len(paths))
	for _, p := range paths {
		lm, err := manifest.Read(p)
		if err != nil {
			return nil, fmt.Errorf("loading workspace member: %w", err)
		}
		out = append(out, lm)
	}
	return out, nil
}

func expandMember(rootDir, member string) ([]string, error) {
	pattern := filepath.Join(rootDir, filepath.FromSlash(member))
	if !hasMeta(member) {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad workspace member glob %q: %w", errs.ErrParse, member, err)
	}
	slices.Sort(matches)

	var dirs []string
	for _, m := range matches {
		if hasManifest(m) {
			dirs = append(dirs, m)
		}
	}
	return dirs, nil
}

func isExcluded(rootDir, dir string, exclude []string) bool {
	for _, e := range exclude {
		pattern := filepath.Join(rootDir, filepath.FromSlash(e))
		if ok, _ := filepath.Match(pattern, dir); ok || isWithin(pattern, dir) {
			return true
		}
	}
	return false
}

func pathDependencies(lm *manifest.LocalManifest) ([]string, error) {
	var dirs []string
	for _, s := range lm.Sections() {
		entries, err := lm.Dependencies(s)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Dep.Source.Kind != dependency.SourcePath {
				continue
			}
			p := filepath.FromSlash(e.Dep.Source.Path)
			if !filepath.IsAbs(p) {
				p = filepath.Join(lm.Dir(), p)
			}
			dirs = append(dirs, filepath.Clean(p))
		}
	}
	return dirs, nil
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, manifest.FileName))
	return err == nil && !info.IsDir()
}

func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
