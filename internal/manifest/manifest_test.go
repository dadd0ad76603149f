package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/errs"
	"github.com/crateops/cargo-edit/internal/version"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

func loadFixture(t *testing.T, name string) (*Manifest, string) {
	t.Helper()
	data, err := os.ReadFile(testPath(name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(%s) error: %v", name, err)
	}
	return m, string(data)
}

func ptr[T any](v T) *T { return &v }

func registry(req string) *dependency.Source {
	src := dependency.RegistrySource(version.MustParseRequirement(req))
	return &src
}

var (
	normal = dependency.Section{Kind: dependency.Normal}
	dev    = dependency.Section{Kind: dependency.Development}
	build  = dependency.Section{Kind: dependency.Build}
	unix   = dependency.Section{Kind: dependency.Normal, Target: "cfg(unix)"}
	winDev = dependency.Section{Kind: dependency.Development, Target: "cfg(windows)"}
)

func TestParse_Invalid(t *testing.T) {
	data, err := os.ReadFile(testPath("invalid.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(data); !errors.Is(err, errs.ErrParse) {
		t.Errorf("Parse(invalid) = %v, want ErrParse", err)
	}
}

func TestManifest_PackageAndWorkspace(t *testing.T) {
	m, _ := loadFixture(t, "package.toml")
	if got := m.PackageName(); got != "demo" {
		t.Errorf("PackageName() = %q, want %q", got, "demo")
	}
	if m.IsVirtual() {
		t.Error("package manifest reported as virtual")
	}

	v, _ := loadFixture(t, "virtual.toml")
	if !v.IsVirtual() {
		t.Error("workspace manifest not reported as virtual")
	}
	members, exclude, ok, err := v.Workspace()
	if err != nil || !ok {
		t.Fatalf("Workspace() = ok %v, err %v", ok, err)
	}
	if !slices.Equal(members, []string{"crates/*", "tools/cli"}) {
		t.Errorf("members = %v", members)
	}
	if !slices.Equal(exclude, []string{"crates/legacy"}) {
		t.Errorf("exclude = %v", exclude)
	}
}

func TestManifest_Sections(t *testing.T) {
	m, _ := loadFixture(t, "package.toml")
	got := m.Sections()
	want := []dependency.Section{normal, dev, build, unix, winDev}
	if !slices.Equal(got, want) {
		t.Errorf("Sections() = %v, want %v", got, want)
	}
	if m.Section(dependency.Section{Kind: dependency.Build, Target: "cfg(unix)"}) != nil {
		t.Error("Section() returned a table that does not exist")
	}
}

func TestManifest_Dependencies(t *testing.T) {
	m, _ := loadFixture(t, "package.toml")
	entries, err := m.Dependencies(normal)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	if want := []string{"serde", "toml", "docopt", "regex"}; !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	regex := entries[3].Dep
	if regex.Source.Requirement.String() != "1.3" {
		t.Errorf("regex requirement = %q", regex.Source.Requirement)
	}
	if regex.DefaultFeatures == nil || *regex.DefaultFeatures {
		t.Error("regex default-features should be false")
	}
}

func TestManifest_InsertNew(t *testing.T) {
	m, orig := loadFixture(t, "package.toml")
	res, err := m.Insert(normal, "rand", dependency.Patch{Source: registry("0.8")}, InsertOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Old != nil {
		t.Errorf("Old = %+v, want nil", res.Old)
	}
	want := strings.Replace(orig, "docopt = \"0.8\"\n", "docopt = \"0.8\"\nrand = \"0.8\"\n", 1)
	if got := string(m.Bytes()); got != want {
		t.Errorf("after insert:\n%s\nwant:\n%s", got, want)
	}
}

func TestManifest_InsertMerge(t *testing.T) {
	m, orig := loadFixture(t, "package.toml")
	res, err := m.Insert(normal, "serde", dependency.Patch{Optional: ptr(true)}, InsertOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Old == nil || res.Old.Optional {
		t.Errorf("Old = %+v", res.Old)
	}
	want := strings.Replace(orig,
		`serde = { version = "1.0", features = ["derive"] }`,
		`serde = { version = "1.0", features = ["derive"], optional = true }`, 1)
	if got := string(m.Bytes()); got != want {
		t.Errorf("after merge:\n%s\nwant:\n%s", got, want)
	}
}

func TestManifest_InsertRenameMovesKey(t *testing.T) {
	m, _ := loadFixture(t, "package.toml")
	if _, err := m.Insert(normal, "toml", dependency.Patch{Rename: ptr("toml_old")}, InsertOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := m.Lookup(normal, "toml"); found {
		t.Error("old key toml still present")
	}
	dep, found, err := m.Lookup(normal, "toml_old")
	if err != nil || !found {
		t.Fatalf("Lookup(toml_old) = found %v, err %v", found, err)
	}
	if dep.Name != "toml" || dep.Source.Requirement.String() != "0.5" {
		t.Errorf("moved dependency = %+v", dep)
	}
	if !strings.Contains(string(m.Bytes()), `toml_old = { version = "0.5", package = "toml" }`) {
		t.Errorf("rendered manifest missing renamed entry:\n%s", m.Bytes())
	}
}

func TestManifest_InsertRejectsConflicts(t *testing.T) {
	m, orig := loadFixture(t, "package.toml")
	_, err := m.Insert(dev, "rand", dependency.Patch{Source: registry("0.8"), Optional: ptr(true)}, InsertOptions{})
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("Insert(optional dev) = %v, want ErrConflict", err)
	}
	if string(m.Bytes()) != orig {
		t.Error("failed insert modified the manifest")
	}
}

func TestManifest_InsertSorted(t *testing.T) {
	m, _ := loadFixture(t, "package.toml")
	if _, err := m.Insert(normal, "anyhow", dependency.Patch{Source: registry("1")}, InsertOptions{Sort: true}); err != nil {
		t.Fatal(err)
	}
	entries, err := m.Dependencies(normal)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	if want := []string{"anyhow", "docopt", "serde", "toml", "regex"}; !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestManifest_AddRemoveRestores(t *testing.T) {
	sections := []dependency.Section{
		normal,
		dev,
		{Kind: dependency.Normal, Target: "cfg(target_os = \"macos\")"},
		{Kind: dependency.Build},
	}
	for _, s := range sections {
		t.Run(s.String(), func(t *testing.T) {
			m, orig := loadFixture(t, "package.toml")
			if _, err := m.Insert(s, "zzz", dependency.Patch{Source: registry("1.2")}, InsertOptions{}); err != nil {
				t.Fatal(err)
			}
			if string(m.Bytes()) == orig {
				t.Fatal("insert did not change the manifest")
			}
			if _, err := Parse(m.Bytes()); err != nil {
				t.Fatalf("manifest after insert does not parse: %v", err)
			}
			if _, err := m.Remove(s, "zzz"); err != nil {
				t.Fatal(err)
			}
			if got := string(m.Bytes()); got != orig {
				t.Errorf("after add+remove:\n%s\nwant:\n%s", got, orig)
			}
		})
	}
}

func TestManifest_Remove(t *testing.T) {
	tests := []struct {
		name    string
		section dependency.Section
		key     string
		removed string
	}{
		{"entry with comment", normal, "serde", "# serialization\nserde = { version = \"1.0\", features = [\"derive\"] }\n"},
		{"sub-table entry", normal, "regex", "[dependencies.regex]\nversion = \"1.3\"\ndefault-features = false\n\n"},
		{"emptied table", build, "cc", "[build-dependencies]\ncc = \"1.0\"\n\n"},
		{"target table", unix, "libc", "[target.'cfg(unix)'.dependencies]\nlibc = \"0.2\"\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, orig := loadFixture(t, "package.toml")
			dep, err := m.Remove(tt.section, tt.key)
			if err != nil {
				t.Fatalf("Remove() error: %v", err)
			}
			if dep.Key() != tt.key {
				t.Errorf("removed %q, want %q", dep.Key(), tt.key)
			}
			want := strings.Replace(orig, tt.removed, "", 1)
			if got := string(m.Bytes()); got != want {
				t.Errorf("after remove:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestManifest_RemoveScoping(t *testing.T) {
	m, orig := loadFixture(t, "package.toml")

	if _, err := m.Remove(normal, "pretty_assertions"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Remove from wrong section = %v, want ErrNotFound", err)
	}
	if _, err := m.Remove(dependency.Section{Kind: dependency.Normal, Target: "cfg(foo)"}, "libc"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Remove from missing table = %v, want ErrNotFound", err)
	}
	if string(m.Bytes()) != orig {
		t.Error("failed removals modified the manifest")
	}

	if _, err := m.Remove(dev, "pretty_assertions"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := m.Lookup(normal, "serde"); !found {
		t.Error("removing from dev touched [dependencies]")
	}
}

func TestManifest_SetRequirement(t *testing.T) {
	tests := []struct {
		name    string
		section dependency.Section
		key     string
		req     string
		old     string
		before  string
		after   string
	}{
		{"string keeps comment", normal, "toml", "0.5.8", "0.5",
			"toml = \"0.5\"   # pinned for now\n", "toml = \"0.5.8\"   # pinned for now\n"},
		{"inline table", normal, "serde", "^1.0.130", "1.0",
			`serde = { version = "1.0", features = ["derive"] }`, `serde = { version = "^1.0.130", features = ["derive"] }`},
		{"sub-table", normal, "regex", "1.5", "1.3",
			"[dependencies.regex]\nversion = \"1.3\"\n", "[dependencies.regex]\nversion = \"1.5\"\n"},
		{"target table", winDev, "winapi", "0.3.9", "0.3",
			`winapi = { version = "0.3", features = ["winuser"] }`, `winapi = { version = "0.3.9", features = ["winuser"] }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, orig := loadFixture(t, "package.toml")
			old, err := m.SetRequirement(tt.section, tt.key, version.MustParseRequirement(tt.req))
			if err != nil {
				t.Fatal(err)
			}
			if old != tt.old {
				t.Errorf("old = %q, want %q", old, tt.old)
			}
			want := strings.Replace(orig, tt.before, tt.after, 1)
			if got := string(m.Bytes()); got != want {
				t.Errorf("after upgrade:\n%s\nwant:\n%s", got, want)
			}
		})
	}

	m, _ := loadFixture(t, "package.toml")
	if _, err := m.SetRequirement(dev, "serde", version.MustParseRequirement("1")); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("SetRequirement(missing) = %v, want ErrNotFound", err)
	}
}

func TestManifest_SortSection(t *testing.T) {
	m, orig := loadFixture(t, "package.toml")
	if m.IsSectionSorted(normal) {
		t.Fatal("fixture [dependencies] should start unsorted")
	}
	if !m.SortSection(normal) {
		t.Fatal("SortSection() = false, want true")
	}
	want := strings.Replace(orig,
		"# serialization\nserde = { version = \"1.0\", features = [\"derive\"] }\ntoml = \"0.5\"   # pinned for now\ndocopt = \"0.8\"\n",
		"docopt = \"0.8\"\n# serialization\nserde = { version = \"1.0\", features = [\"derive\"] }\ntoml = \"0.5\"   # pinned for now\n", 1)
	first := string(m.Bytes())
	if first != want {
		t.Errorf("after sort:\n%s\nwant:\n%s", first, want)
	}

	if m.SortSection(normal) {
		t.Error("second SortSection() = true, want false")
	}
	if string(m.Bytes()) != first {
		t.Error("sorting twice changed the output")
	}
	if m.SortSection(dependency.Section{Kind: dependency.Build, Target: "cfg(unix)"}) {
		t.Error("sorting a missing section reported a change")
	}
}
