package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crateops/cargo-edit/internal/errs"
)

// ErrWildcard is returned when an unconstrained requirement is parsed without
// the AllowWildcard option.
var ErrWildcard = fmt.Errorf("%w: unconstrained requirement \"*\" is not allowed", errs.ErrParse)

// comparatorRe matches a single Cargo comparator after whitespace removal.
var comparatorRe = regexp.MustCompile(`^(=|\^|~|>=|<=|>|<)?(\d+|[*xX])(\.(\d+|[*xX]))?(\.(\d+|[*xX]))?(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// Requirement is an immutable semantic-version constraint. String returns the
// text exactly as it was parsed or formatted.
type Requirement struct {
	raw         string
	constraints *semver.Constraints
}

type parseOptions struct {
	allowWildcard bool
}

// ParseOption configures ParseRequirement.
type ParseOption func(*parseOptions)

// AllowWildcard accepts a bare "*" requirement.
func AllowWildcard() ParseOption {
	return func(o *parseOptions) { o.allowWildcard = true }
}

// ParseRequirement parses a Cargo requirement string. Failures wrap
// errs.ErrParse.
func ParseRequirement(input string, opts ...ParseOption) (Requirement, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	raw := strings.TrimSpace(input)
	if raw == "" || raw == "*" {
		if !o.allowWildcard {
			return Requirement{}, ErrWildcard
		}
		raw = "*"
	}

	for _, part := range strings.Split(raw, ",") {
		fields := strings.Fields(part)
		comp := strings.Join(fields, "")
		if len(fields) > 2 || (len(fields) == 2 && !isOperator(fields[0])) || !comparatorRe.MatchString(comp) {
			return Requirement{}, fmt.Errorf("%w: invalid requirement %q: bad comparator %q", errs.ErrParse, input, strings.TrimSpace(part))
		}
	}

	c, err := semver.NewConstraint(toConstraint(raw))
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: invalid requirement %q: %v", errs.ErrParse, input, err)
	}
	return Requirement{raw: raw, constraints: c}, nil
}

// MustParseRequirement is like ParseRequirement but panics on error.
func MustParseRequirement(input string, opts ...ParseOption) Requirement {
	r, err := ParseRequirement(input, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// IsWildcard reports whether err came from the wildcard guardrail.
func IsWildcard(err error) bool {
	return errors.Is(err, ErrWildcard)
}

// String returns the requirement text.
func (r Requirement) String() string { return r.raw }

// IsZero reports whether r is the zero Requirement.
func (r Requirement) IsZero() bool { return r.constraints == nil }

// Matches reports whether v satisfies the requirement under Cargo semantics,
// where a bare version is a caret requirement.
func (r Requirement) Matches(v *semver.Version) bool {
	if r.constraints == nil {
		return false
	}
	return r.constraints.Check(v)
}

func isOperator(s string) bool {
	switch s {
	case "=", "^", "~", ">", ">=", "<", "<=":
		return true
	}
	return false
}

// toConstraint rewrites Cargo syntax into the Masterminds constraint syntax:
// comparators without an operator get Cargo's implicit caret.
func toConstraint(raw string) string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		comp := strings.Join(strings.Fields(part), "")
		core := comp
		if i := strings.IndexAny(comp, "-+"); i >= 0 {
			core = comp[:i]
		}
		if comp != "" && comp[0] >= '0' && comp[0] <= '9' && !strings.ContainsAny(core, "*xX") {
			comp = "^" + comp
		}
		out = append(out, comp)
	}
	return strings.Join(out, ", ")
}
