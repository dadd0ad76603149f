package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crateops/cargo-edit/internal/errs"
)

// UpgradeMethod controls how much version drift a written requirement permits.
type UpgradeMethod string

const (
	// Exact writes the bare version with no modifier.
	Exact UpgradeMethod = "exact"
	// Patch writes a tilde requirement that locks major.minor.
	Patch UpgradeMethod = "patch"
	// Minor writes a caret requirement (Cargo's compatibility rule).
	Minor UpgradeMethod = "minor"
	// All writes a lower bound only.
	All UpgradeMethod = "all"
)

// DefaultUpgradeMethod is used when neither a flag nor the config sets one.
const DefaultUpgradeMethod = Minor

// ParseUpgradeMethod parses a method name, defaulting to Minor when empty.
func ParseUpgradeMethod(s string) (UpgradeMethod, error) {
	switch UpgradeMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultUpgradeMethod, nil
	case Exact:
		return Exact, nil
	case Patch:
		return Patch, nil
	case Minor:
		return Minor, nil
	case All:
		return All, nil
	default:
		return "", fmt.Errorf("%w: unknown upgrade method %q (must be exact, patch, minor, or all)", errs.ErrParse, s)
	}
}

// String returns the method name.
func (m UpgradeMethod) String() string { return string(m) }

// operator returns the requirement prefix written for this method.
func (m UpgradeMethod) operator() string {
	switch m {
	case Exact:
		return ""
	case Patch:
		return "~"
	case All:
		return ">="
	default:
		return "^"
	}
}

// FormatRequirement turns a concrete version into a requirement under the
// given method. Build metadata is dropped; prerelease tags are kept.
func FormatRequirement(v *semver.Version, m UpgradeMethod) Requirement {
	raw := m.operator() + formatVersion(v)
	c, err := semver.NewConstraint(toConstraint(raw))
	if err != nil {
		// Every formatted version is a valid comparator.
		panic(fmt.Sprintf("formatting requirement %q: %v", raw, err))
	}
	return Requirement{raw: raw, constraints: c}
}

func formatVersion(v *semver.Version) string {
	s := fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	if pre := v.Prerelease(); pre != "" {
		s += "-" + pre
	}
	return s
}

// ParseVersion parses a concrete version, tolerating a leading "v".
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", s, err)
	}
	return v, nil
}
