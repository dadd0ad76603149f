//go:build integration

package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/crateops/cargo-edit/internal/engine"
	"github.com/crateops/cargo-edit/internal/registry"
	"github.com/crateops/cargo-edit/internal/source"
)

// fakeIndex serves the crates.io versions endpoint from a fixed table and
// counts requests per crate.
type fakeIndex struct {
	mu       sync.Mutex
	crates   map[string][]registry.Version
	requests map[string]int
}

func newFakeIndex(t *testing.T) (*fakeIndex, *httptest.Server) {
	t.Helper()
	idx := &fakeIndex{
		crates: map[string][]registry.Version{
			"serde": {
				{Num: "1.0.0"}, {Num: "1.2.5"}, {Num: "1.3.0", Yanked: true}, {Num: "2.0.0-rc.1"},
			},
			"rand":  {{Num: "0.7.3"}, {Num: "0.8.5"}},
			"regex": {{Num: "1.10.2"}},
			"libc":  {{Num: "0.2.150"}},
		},
		requests: map[string]int{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := strings.CutPrefix(r.URL.Path, "/api/v1/crates/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		idx.mu.Lock()
		idx.requests[name]++
		versions, found := idx.crates[name]
		idx.mu.Unlock()
		if !found {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"versions": versions})
	}))
	t.Cleanup(srv.Close)
	return idx, srv
}

func (f *fakeIndex) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[name]
}

// testEnv holds an isolated workspace and the engine wired to it.
type testEnv struct {
	Root     string // workspace root directory
	CacheDir string // registry cache directory
	Index    *fakeIndex
	Engine   *engine.Engine
	Changes  []engine.Change
}

// setupTestEnv creates temp directories and an engine backed by the real
// registry client and source inspector.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	idx, srv := newFakeIndex(t)
	env := &testEnv{
		Root:     t.TempDir(),
		CacheDir: t.TempDir(),
		Index:    idx,
	}
	reg := registry.New(
		registry.WithBaseURL(srv.URL),
		registry.WithHTTPClient(srv.Client()),
		registry.WithCache(env.CacheDir, registry.DefaultCacheMaxAge),
	)
	env.Engine = engine.New(reg, source.New(),
		engine.WithReporter(engine.ReporterFunc(func(c engine.Change) {
			env.Changes = append(env.Changes, c)
		})),
	)
	return env
}

// setupWorkspace lays out a root package with two members, an implicit
// member reached through a path dependency, and a local crate outside the
// workspace.
func setupWorkspace(t *testing.T, root string) {
	t.Helper()

	writeFile(t, filepath.Join(root, "Cargo.toml"), `[package]
name = "app"
version = "0.1.0"

[workspace]
members = ["crates/*"]
exclude = ["crates/skipped"]

[dependencies]
serde = "1.0" # serialization
three = { path = "implicit/three" }

[target.'cfg(unix)'.dependencies]
libc = "0.2"
`)
	writeFile(t, filepath.Join(root, "crates", "b", "Cargo.toml"), `[package]
name = "b"
version = "0.1.0"

[dependencies]
rand = "0.7"
`)
	writeFile(t, filepath.Join(root, "crates", "a", "Cargo.toml"), `[package]
name = "a"
version = "0.1.0"

[dependencies]
serde = { version = "1.0", features = ["derive"] }
`)
	writeFile(t, filepath.Join(root, "crates", "skipped", "Cargo.toml"), `[package]
name = "skipped"
version = "0.1.0"

[dependencies]
serde = "0.9"
`)
	writeFile(t, filepath.Join(root, "implicit", "three", "Cargo.toml"), `[package]
name = "three"
version = "0.1.0"
`)
}

func manifestPath(root string, parts ...string) string {
	return filepath.Join(append(append([]string{root}, parts...), "Cargo.toml")...)
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}
