package dependency

import (
	"fmt"
	"slices"

	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/tomldoc"
	"github.com/crateops/cargo-edit/internal/version"
)

const defaultFeaturesKey = "default-features"

// canonicalOrder is the key order used for keys the entry did not already have.
var canonicalOrder = []string{
	"version", "path", "git", "branch", "tag", "rev", "registry",
	"package", "workspace", defaultFeaturesKey, "features", "optional",
}

// FromValue reads the dependency stored under key. v is either a version
// string or a tomldoc.InlineTable, as returned by tomldoc.Table.Get.
func FromValue(key string, v any) (Dependency, error) {
	switch x := v.(type) {
	case string:
		req, err := version.ParseRequirement(x, version.AllowWildcard())
		if err != nil {
			return Dependency{}, fmt.Errorf("parsing %s: %w", key, err)
		}
		return Dependency{Name: key, Source: RegistrySource(req)}, nil
	case tomldoc.InlineTable:
		return fromTable(key, x)
	default:
		return Dependency{}, fmt.Errorf("%w: %s: expected a version string or a table, got %T", errs.ErrParse, key, v)
	}
}

func fromTable(key string, tbl tomldoc.InlineTable) (Dependency, error) {
	d := Dependency{Name: key, wasTable: true, order: tbl.Keys()}
	workspace := false

	str := func(kv tomldoc.KeyValue) (string, error) {
		s, ok := kv.Value.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s.%s: expected a string, got %T", errs.ErrParse, key, kv.Key, kv.Value)
		}
		return s, nil
	}
	boolean := func(kv tomldoc.KeyValue) (bool, error) {
		b, ok := kv.Value.(bool)
		if !ok {
			return false, fmt.Errorf("%w: %s.%s: expected a boolean, got %T", errs.ErrParse, key, kv.Key, kv.Value)
		}
		return b, nil
	}

	for _, kv := range tbl {
		var err error
		switch kv.Key {
		case "version":
			var s string
			if s, err = str(kv); err == nil {
				d.Source.Requirement, err = version.ParseRequirement(s, version.AllowWildcard())
			}
		case "path":
			d.Source.Path, err = str(kv)
		case "git":
			d.Source.Git, err = str(kv)
		case "branch":
			d.Source.Branch, err = str(kv)
		case "tag":
			d.Source.Tag, err = str(kv)
		case "rev":
			d.Source.Rev, err = str(kv)
		case "registry":
			d.Registry, err = str(kv)
		case "package":
			var pkg string
			if pkg, err = str(kv); err == nil {
				d.Name, d.Rename = pkg, key
			}
		case "optional":
			d.Optional, err = boolean(kv)
		case "workspace":
			workspace, err = boolean(kv)
		case "default-features", "default_features":
			var b bool
			if b, err = boolean(kv); err == nil {
				d.DefaultFeatures = &b
				d.dfSpelling = kv.Key
			}
		case "features":
			d.Features, err = stringList(key, kv.Value)
		default:
			d.extra = append(d.extra, extraKey{key: kv.Key, value: kv.Value})
		}
		if err != nil {
			return Dependency{}, fmt.Errorf("parsing %s: %w", key, err)
		}
	}

	switch {
	case workspace:
		d.Source.Kind = SourceWorkspace
	case d.Source.Git != "" && d.Source.Path != "":
		return Dependency{}, fmt.Errorf("%w: %s: both git and path are set", errs.ErrParse, key)
	case d.Source.Git != "":
		d.Source.Kind = SourceGit
	case d.Source.Path != "":
		d.Source.Kind = SourcePath
	default:
		d.Source.Kind = SourceRegistry
	}
	return d, nil
}

func stringList(key string, v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s.features: expected an array, got %T", errs.ErrParse, key, v)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s.features: expected strings, got %T", errs.ErrParse, key, it)
		}
		out = append(out, s)
	}
	return out, nil
}

// IsMinimal reports whether the dependency is a registry dependency with a
// version and nothing else, i.e. it can be written as `name = "req"`.
func (d Dependency) IsMinimal() bool {
	return d.Source.Kind == SourceRegistry &&
		!d.Source.Requirement.IsZero() &&
		!d.Optional &&
		d.Rename == "" &&
		(d.DefaultFeatures == nil || *d.DefaultFeatures) &&
		len(d.Features) == 0 &&
		d.Registry == "" &&
		len(d.extra) == 0
}

// ToValue renders the dependency as the value to store under Key(). Minimal
// dependencies become a bare string unless they were read from a table of
// more than one key.
func (d Dependency) ToValue() any {
	if d.IsMinimal() && (!d.wasTable || len(d.order) <= 1) {
		return d.Source.Requirement.String()
	}
	return d.ToTable()
}

// ToTable renders the dependency as a table. Keys the entry was read with
// keep their position; new keys follow in canonical order.
func (d Dependency) ToTable() tomldoc.InlineTable {
	fields := make(map[string]any)
	src := d.Source
	switch src.Kind {
	case SourceWorkspace:
		fields["workspace"] = true
	case SourceGit:
		fields["git"] = src.Git
		for k, v := range map[string]string{"branch": src.Branch, "tag": src.Tag, "rev": src.Rev} {
			if v != "" {
				fields[k] = v
			}
		}
	case SourcePath:
		fields["path"] = src.Path
	}
	if src.Kind != SourceWorkspace && !src.Requirement.IsZero() {
		fields["version"] = src.Requirement.String()
	}
	if d.Registry != "" {
		fields["registry"] = d.Registry
	}
	if d.Rename != "" {
		fields["package"] = d.Name
	}
	dfKey := defaultFeaturesKey
	if d.dfSpelling != "" {
		dfKey = d.dfSpelling
	}
	if d.DefaultFeatures != nil {
		fields[dfKey] = *d.DefaultFeatures
	}
	if len(d.Features) > 0 {
		fields["features"] = slices.Clone(d.Features)
	}
	if d.Optional {
		fields["optional"] = true
	}
	for _, e := range d.extra {
		fields[e.key] = e.value
	}

	var out tomldoc.InlineTable
	emit := func(k string) {
		if v, ok := fields[k]; ok {
			out = append(out, tomldoc.KeyValue{Key: k, Value: v})
			delete(fields, k)
		}
	}
	for _, k := range d.order {
		emit(k)
	}
	for _, k := range canonicalOrder {
		if k == defaultFeaturesKey {
			k = dfKey
		}
		emit(k)
	}
	for _, e := range d.extra {
		emit(e.key)
	}
	return out
}
