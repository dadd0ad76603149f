package dependency

import (
	"fmt"
	"strings"
)

// Kind is the dependency table a dependency belongs to.
type Kind int

const (
	Normal Kind = iota
	Development
	Build
)

// Kinds lists every kind in the order their tables are scanned.
var Kinds = []Kind{Normal, Development, Build}

// TableName returns the manifest table name for the kind.
func (k Kind) TableName() string {
	switch k {
	case Development:
		return "dev-dependencies"
	case Build:
		return "build-dependencies"
	default:
		return "dependencies"
	}
}

// String returns a short name used in messages.
func (k Kind) String() string {
	switch k {
	case Development:
		return "dev"
	case Build:
		return "build"
	default:
		return "normal"
	}
}

// KindFromTable maps a table name back to its kind.
func KindFromTable(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.TableName() == name {
			return k, true
		}
	}
	return Normal, false
}

// Section identifies one dependency table: a kind, optionally scoped to a
// platform target such as "cfg(unix)".
type Section struct {
	Kind   Kind
	Target string
}

// Path returns the table path, e.g. [target cfg(unix) dependencies].
func (s Section) Path() []string {
	if s.Target != "" {
		return []string{"target", s.Target, s.Kind.TableName()}
	}
	return []string{s.Kind.TableName()}
}

// String returns the dotted table path.
func (s Section) String() string {
	return strings.Join(s.Path(), ".")
}

// SectionFromPath is the inverse of Path.
func SectionFromPath(path []string) (Section, error) {
	switch {
	case len(path) == 1:
		if k, ok := KindFromTable(path[0]); ok {
			return Section{Kind: k}, nil
		}
	case len(path) == 3 && path[0] == "target":
		if k, ok := KindFromTable(path[2]); ok {
			return Section{Kind: k, Target: path[1]}, nil
		}
	}
	return Section{}, fmt.Errorf("%q is not a dependency table", strings.Join(path, "."))
}
