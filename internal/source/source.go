// Package source inspects local and git dependency sources to learn the
// name of the crate they provide.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/crateops/cargo-edit/internal/dependency"
	"github.com/crateops/cargo-edit/internal/errs"
)

const manifestFile = "Cargo.toml"

// Package is the [package] table of a source's manifest.
type Package struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type cargoManifest struct {
	Package *Package `toml:"package"`
}

// Inspector reads crate metadata from path and git sources.
type Inspector struct {
	git     string
	tempDir string
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithGit sets the git executable (default "git" from PATH).
func WithGit(bin string) Option {
	return func(i *Inspector) {
		i.git = bin
	}
}

// WithTempDir sets the parent directory for clones (default os.TempDir).
func WithTempDir(dir string) Option {
	return func(i *Inspector) {
		i.tempDir = dir
	}
}

// New creates an Inspector.
func New(opts ...Option) *Inspector {
	i := &Inspector{git: "git"}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CrateName returns the package name declared by a path or git source.
func (i *Inspector) CrateName(ctx context.Context, src dependency.Source) (string, error) {
	var (
		pkg *Package
		err error
	)
	switch src.Kind {
	case dependency.SourcePath:
		pkg, err = ReadPackage(src.Path)
	case dependency.SourceGit:
		pkg, err = i.gitPackage(ctx, src)
	default:
		return "", fmt.Errorf("%w: cannot inspect a %s source", errs.ErrConflict, src.Kind)
	}
	if err != nil {
		return "", err
	}
	return pkg.Name, nil
}

// ReadPackage reads the [package] table of the Cargo.toml in dir. dir may
// also name the manifest file itself.
func ReadPackage(dir string) (*Package, error) {
	path := dir
	if filepath.Base(path) != manifestFile {
		path = filepath.Join(dir, manifestFile)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no %s in %s", errs.ErrNotFound, manifestFile, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", errs.ErrIO, path, err)
	}

	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", errs.ErrParse, path, err)
	}
	if m.Package == nil || m.Package.Name == "" {
		return nil, fmt.Errorf("%w: %s does not declare a package name", errs.ErrNotFound, path)
	}
	return m.Package, nil
}

func (i *Inspector) gitPackage(ctx context.Context, src dependency.Source) (*Package, error) {
	if err := i.ensureGit(); err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp(i.tempDir, "cargo-edit-git-")
	if err != nil {
		return nil, fmt.Errorf("%w: creating clone directory: %w", errs.ErrIO, err)
	}
	defer os.RemoveAll(tmp)

	checkout := filepath.Join(tmp, "repo")
	if err := i.shallowClone(ctx, src, checkout); err != nil {
		return nil, err
	}
	return ReadPackage(checkout)
}

// shallowClone clones src into dir. A rev cannot be fetched at depth 1, so
// that case clones the default branch and checks the rev out afterwards.
func (i *Inspector) shallowClone(ctx context.Context, src dependency.Source, dir string) error {
	args := []string{"clone", "--depth=1"}
	if ref := src.Branch + src.Tag; ref != "" {
		args = append(args, "--branch", ref)
	}
	if src.Rev != "" {
		args = []string{"clone", "--no-checkout"}
	}
	args = append(args, src.Git, dir)

	cmd := exec.CommandContext(ctx, i.git, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: cloning %s: %w\n%s", errs.ErrNetwork, src.Git, err, strings.TrimSpace(string(output)))
	}

	if src.Rev != "" {
		cmd = exec.CommandContext(ctx, i.git, "checkout", src.Rev)
		cmd.Dir = dir
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("%w: checking out %s: %w\n%s", errs.ErrNotFound, src.Rev, err, strings.TrimSpace(string(output)))
		}
	}
	return nil
}

// ensureGit checks that git is available.
func (i *Inspector) ensureGit() error {
	if _, err := exec.LookPath(i.git); err != nil {
		return fmt.Errorf("%w: git is required but not found in PATH", errs.ErrIO)
	}
	return nil
}
