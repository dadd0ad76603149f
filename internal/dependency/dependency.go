package dependency

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/version"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SourceKind tags the active variant of a Source.
type SourceKind int

const (
	SourceRegistry SourceKind = iota
	SourceGit
	SourcePath
	// SourceWorkspace is a dependency inherited with `workspace = true`.
	SourceWorkspace
)

func (k SourceKind) String() string {
	switch k {
	case SourceGit:
		return "git"
	case SourcePath:
		return "path"
	case SourceWorkspace:
		return "workspace"
	default:
		return "registry"
	}
}

// Source is where a dependency comes from. Exactly one variant is active.
// Git and path sources may still carry a registry requirement when the
// manifest declares both (`{ path = "..", version = "1" }`).
type Source struct {
	Kind        SourceKind
	Requirement version.Requirement
	Git         string
	Branch      string
	Tag         string
	Rev         string
	Path        string
}

// RegistrySource returns a registry source with the given requirement.
func RegistrySource(req version.Requirement) Source {
	return Source{Kind: SourceRegistry, Requirement: req}
}

// GitSource returns a git source. At most one of branch, tag, rev may be set.
func GitSource(url, branch, tag, rev string) Source {
	return Source{Kind: SourceGit, Git: url, Branch: branch, Tag: tag, Rev: rev}
}

// PathSource returns a local path source.
func PathSource(path string) Source {
	return Source{Kind: SourcePath, Path: path}
}

// Dependency is one entry of a dependency table.
type Dependency struct {
	// Name is the crate name. It is the table key unless Rename is set.
	Name   string
	Source Source

	Optional bool
	// Rename is the key used in the manifest when the crate is aliased
	// (written as `package = Name`).
	Rename          string
	DefaultFeatures *bool
	Features        []string
	// Registry names an alternative registry.
	Registry string

	extra      []extraKey
	order      []string
	dfSpelling string
	wasTable   bool
}

type extraKey struct {
	key   string
	value any
}

// New returns a registry dependency with no requirement.
func New(name string) Dependency {
	return Dependency{Name: name}
}

// Key returns the effective table key: the rename if present, else Name.
func (d Dependency) Key() string {
	if d.Rename != "" {
		return d.Rename
	}
	return d.Name
}

// WasTable reports whether the dependency was read from a table form.
func (d Dependency) WasTable() bool { return d.wasTable }

// ValidateName checks a crate identifier.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: invalid crate name %q", errs.ErrParse, name)
	}
	return nil
}

// Validate checks the dependency before it is written into section.
func (d Dependency) Validate(section Section) error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if d.Rename != "" {
		if err := ValidateName(d.Rename); err != nil {
			return err
		}
	}
	if d.Optional && section.Kind != Normal {
		return fmt.Errorf("%w: %s: optional is only allowed for normal dependencies, not %s-dependencies", errs.ErrConflict, d.Name, section.Kind)
	}
	if section.Target != "" && section.Kind != Normal {
		return fmt.Errorf("%w: %s: target scoping is only allowed for normal dependencies, not %s-dependencies", errs.ErrConflict, d.Name, section.Kind)
	}

	src := d.Source
	switch src.Kind {
	case SourceRegistry:
		if src.Requirement.IsZero() {
			return fmt.Errorf("%w: %s: registry dependency has no version requirement", errs.ErrConflict, d.Name)
		}
		if src.Git != "" || src.Path != "" {
			return fmt.Errorf("%w: %s: registry dependency cannot also name a git or path source", errs.ErrConflict, d.Name)
		}
	case SourceGit:
		refs := 0
		for _, r := range []string{src.Branch, src.Tag, src.Rev} {
			if r != "" {
				refs++
			}
		}
		if refs > 1 {
			return fmt.Errorf("%w: %s: only one of branch, tag, or rev may be given", errs.ErrConflict, d.Name)
		}
		if src.Path != "" {
			return fmt.Errorf("%w: %s: git and path sources are mutually exclusive", errs.ErrConflict, d.Name)
		}
	case SourcePath:
		if src.Git != "" {
			return fmt.Errorf("%w: %s: git and path sources are mutually exclusive", errs.ErrConflict, d.Name)
		}
	}
	return nil
}

// Patch is a requested change to a dependency. Nil fields are absent and
// leave the existing value alone.
type Patch struct {
	Source          *Source
	Optional        *bool
	Rename          *string
	DefaultFeatures *bool
	Features        []string
	Registry        *string
}

// Merge applies p on top of existing. A new source replaces the old one
// completely, including any git ref or companion version.
func Merge(existing Dependency, p Patch) Dependency {
	out := existing
	out.Features = slices.Clone(existing.Features)
	if p.Source != nil {
		out.Source = *p.Source
		if p.Source.Kind != SourceRegistry && p.Registry == nil {
			out.Registry = ""
		}
	}
	if p.Optional != nil {
		out.Optional = *p.Optional
	}
	if p.Rename != nil {
		out.Rename = *p.Rename
	}
	if p.DefaultFeatures != nil {
		df := *p.DefaultFeatures
		out.DefaultFeatures = &df
	}
	if p.Features != nil {
		out.Features = dedupe(p.Features)
	}
	if p.Registry != nil {
		out.Registry = *p.Registry
	}
	return out
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
