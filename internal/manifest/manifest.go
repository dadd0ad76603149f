package manifest

import (
	"fmt"
	"slices"

	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/tomldoc"
	"github.com/crateops/cargo-edit/internal/version"
)

// Manifest is a parsed Cargo.toml.
type Manifest struct {
	doc *tomldoc.Document
}

// Entry is one dependency of a section together with the key it is stored
// under.
type Entry struct {
	Key string
	Dep dependency.Dependency
}

// InsertOptions controls Insert.
type InsertOptions struct {
	// Sort sorts the whole section after inserting.
	Sort bool
}

// InsertResult describes what Insert did.
type InsertResult struct {
	// Old is the entry that was merged into, nil for a new dependency.
	Old *dependency.Dependency
	New dependency.Dependency
}

// Parse parses manifest text. Failures wrap errs.ErrParse.
func Parse(data []byte) (*Manifest, error) {
	doc, err := tomldoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrParse, err)
	}
	return &Manifest{doc: doc}, nil
}

// Bytes renders the manifest.
func (m *Manifest) Bytes() []byte { return m.doc.Bytes() }

// Document exposes the underlying TOML document.
func (m *Manifest) Document() *tomldoc.Document { return m.doc }

func (m *Manifest) packageTable() *tomldoc.Table {
	if t := m.doc.Table("package"); t != nil {
		return t
	}
	return m.doc.Table("project")
}

// HasPackage reports whether there is a [package] (or legacy [project]) table.
func (m *Manifest) HasPackage() bool { return m.packageTable() != nil }

// IsVirtual reports whether this is a workspace root without a package.
func (m *Manifest) IsVirtual() bool {
	return m.doc.Table("workspace") != nil && !m.HasPackage()
}

// PackageName returns [package].name, or "" when absent.
func (m *Manifest) PackageName() string {
	t := m.packageTable()
	if t == nil {
		return ""
	}
	v, _, err := t.Get("name")
	if err != nil {
		return ""
	}
	name, _ := v.(string)
	return name
}

// Workspace returns the [workspace] members and exclude globs. ok is false
// when there is no [workspace] table.
func (m *Manifest) Workspace() (members, exclude []string, ok bool, err error) {
	t := m.doc.Table("workspace")
	if t == nil {
		return nil, nil, false, nil
	}
	if members, err = stringArray(t, "members"); err != nil {
		return nil, nil, true, err
	}
	if exclude, err = stringArray(t, "exclude"); err != nil {
		return nil, nil, true, err
	}
	return members, exclude, true, nil
}

func stringArray(t *tomldoc.Table, key string) ([]string, error) {
	v, ok, err := t.Get(key)
	if err != nil || !ok {
		return nil, err
	}
	items, isArray := v.([]any)
	if !isArray {
		return nil, fmt.Errorf("%w: workspace.%s must be an array of strings", errs.ErrParse, key)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, isString := it.(string)
		if !isString {
			return nil, fmt.Errorf("%w: workspace.%s must be an array of strings", errs.ErrParse, key)
		}
		out = append(out, s)
	}
	return out, nil
}

// Sections returns every dependency section present in the manifest:
// [dependencies], [dev-dependencies], [build-dependencies], then the
// target-scoped tables in document order.
func (m *Manifest) Sections() []dependency.Section {
	var out []dependency.Section
	for _, k := range dependency.Kinds {
		s := dependency.Section{Kind: k}
		if m.hasSection(s) {
			out = append(out, s)
		}
	}
	for _, t := range m.doc.Tables() {
		p := t.Path()
		if len(p) < 3 || p[0] != "target" {
			continue
		}
		s, err := dependency.SectionFromPath(p[:3])
		if err != nil || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (m *Manifest) hasSection(s dependency.Section) bool {
	return m.doc.Table(s.Path()...) != nil || len(m.doc.Children(s.Path()...)) > 0
}

// Section returns the header table of s, or nil. It never creates anything.
func (m *Manifest) Section(s dependency.Section) *tomldoc.Table {
	return m.doc.Table(s.Path()...)
}

// EnsureSection returns the header table of s, creating it if needed.
func (m *Manifest) EnsureSection(s dependency.Section) *tomldoc.Table {
	return m.doc.EnsureTable(s.Path()...)
}

// Dependencies returns the entries of s: inline entries in order, then the
// [section.name] sub-table entries.
func (m *Manifest) Dependencies(s dependency.Section) ([]Entry, error) {
	var out []Entry
	if t := m.Section(s); t != nil {
		for _, key := range t.Keys() {
			v, _, err := t.Get(key)
			if err != nil {
				return nil, fmt.Errorf("%w: reading %s.%s: %w", errs.ErrParse, s, key, err)
			}
			dep, err := dependency.FromValue(key, v)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", s, err)
			}
			out = append(out, Entry{Key: key, Dep: dep})
		}
	}
	for _, sub := range m.doc.Children(s.Path()...) {
		key := sub.Path()[len(s.Path())]
		dep, err := subTableDependency(sub, key)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s, err)
		}
		out = append(out, Entry{Key: key, Dep: dep})
	}
	return out, nil
}

func subTableDependency(t *tomldoc.Table, key string) (dependency.Dependency, error) {
	tbl, err := t.Entries()
	if err != nil {
		return dependency.Dependency{}, fmt.Errorf("%w: %w", errs.ErrParse, err)
	}
	return dependency.FromValue(key, tbl)
}

// Lookup returns the dependency stored under key in s.
func (m *Manifest) Lookup(s dependency.Section, key string) (dependency.Dependency, bool, error) {
	if t := m.Section(s); t != nil {
		v, ok, err := t.Get(key)
		if err != nil {
			return dependency.Dependency{}, true, fmt.Errorf("%w: %w", errs.ErrParse, err)
		}
		if ok {
			dep, err := dependency.FromValue(key, v)
			return dep, true, err
		}
	}
	if sub := m.subTable(s, key); sub != nil {
		dep, err := subTableDependency(sub, key)
		return dep, true, err
	}
	return dependency.Dependency{}, false, nil
}

func (m *Manifest) subTable(s dependency.Section, key string) *tomldoc.Table {
	return m.doc.Table(append(s.Path(), key)...)
}

// Insert merges p into the dependency on crate name in s, or adds a new one.
// The existing entry is found under the requested key (the rename if p sets
// one) or else under name; when a rename moves it, the old key is removed.
func (m *Manifest) Insert(s dependency.Section, name string, p dependency.Patch, opts InsertOptions) (InsertResult, error) {
	key := name
	if p.Rename != nil && *p.Rename != "" {
		key = *p.Rename
	}

	oldKey := key
	existing, found, err := m.Lookup(s, key)
	if err == nil && !found && key != name {
		oldKey = name
		existing, found, err = m.Lookup(s, name)
	}
	if err != nil {
		return InsertResult{}, err
	}

	var res InsertResult
	base := dependency.New(name)
	if found {
		old := existing
		res.Old = &old
		base = existing
	}
	merged := dependency.Merge(base, p)
	merged.Name = name
	if err := merged.Validate(s); err != nil {
		return InsertResult{}, err
	}
	res.New = merged

	if found && oldKey == merged.Key() {
		if sub := m.subTable(s, oldKey); sub != nil {
			sub.SetAll(merged.ToTable())
		} else {
			m.Section(s).Set(oldKey, merged.ToValue())
		}
	} else {
		if found {
			m.deleteKey(s, oldKey)
		}
		m.EnsureSection(s).Set(merged.Key(), merged.ToValue())
	}

	if opts.Sort {
		m.SortSection(s)
	}
	return res, nil
}

// Remove deletes key from s. It fails with errs.ErrNotFound when the section
// or the key is absent. A section left without entries is removed.
func (m *Manifest) Remove(s dependency.Section, key string) (dependency.Dependency, error) {
	if !m.hasSection(s) {
		return dependency.Dependency{}, fmt.Errorf("%w: the table `%s` could not be found", errs.ErrNotFound, s)
	}
	dep, found, err := m.Lookup(s, key)
	if err != nil {
		return dependency.Dependency{}, err
	}
	if !found {
		return dependency.Dependency{}, fmt.Errorf("%w: the dependency `%s` could not be found in `%s`", errs.ErrNotFound, key, s)
	}

	m.deleteKey(s, key)
	if t := m.Section(s); t != nil && t.Len() == 0 && len(m.doc.Children(s.Path()...)) == 0 {
		m.doc.RemoveTable(t)
	}
	return dep, nil
}

func (m *Manifest) deleteKey(s dependency.Section, key string) {
	if t := m.Section(s); t != nil && t.Delete(key) {
		return
	}
	if sub := m.subTable(s, key); sub != nil {
		m.doc.RemoveTable(sub)
	}
}

// SetRequirement rewrites only the version requirement of the dependency
// stored under key, keeping the entry's form. It returns the previous
// requirement text.
func (m *Manifest) SetRequirement(s dependency.Section, key string, req version.Requirement) (string, error) {
	dep, found, err := m.Lookup(s, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: the dependency `%s` could not be found in `%s`", errs.ErrNotFound, key, s)
	}
	old := dep.Source.Requirement.String()

	t := m.Section(s)
	if t == nil || !t.Has(key) {
		m.subTable(s, key).Set("version", req.String())
		return old, nil
	}
	if !dep.WasTable() {
		t.Set(key, req.String())
		return old, nil
	}
	if !t.SetField(key, "version", req.String()) {
		dep.Source.Requirement = req
		t.Set(key, dep.ToTable())
	}
	return old, nil
}

// SortSection sorts the entries of s by key and reports whether the order
// changed. Sub-table entries are not moved.
func (m *Manifest) SortSection(s dependency.Section) bool {
	t := m.Section(s)
	if t == nil {
		return false
	}
	return t.SortKeys()
}

// IsSectionSorted reports whether SortSection would be a no-op.
func (m *Manifest) IsSectionSorted(s dependency.Section) bool {
	t := m.Section(s)
	return t == nil || t.IsSorted()
}
