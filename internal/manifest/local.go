package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/crateops/cargo-edit/internal/errs"
)

// FileName is the manifest file name searched for by Find.
const FileName = "Cargo.toml"

// LocalManifest is a Manifest backed by a file on disk.
type LocalManifest struct {
	*Manifest
	Path string

	original []byte
	mode     fs.FileMode
}

// Read loads and parses the manifest at path.
func Read(path string) (*LocalManifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return &LocalManifest{Manifest: m, Path: path, original: data, mode: mode}, nil
}

// Dir returns the directory holding the manifest.
func (lm *LocalManifest) Dir() string { return filepath.Dir(lm.Path) }

// Changed reports whether the rendered manifest differs from what was read.
func (lm *LocalManifest) Changed() bool {
	return !bytes.Equal(lm.Bytes(), lm.original)
}

// Write validates the rendered manifest and replaces the file with it. It is
// a no-op when nothing changed and reports whether the file was written.
func (lm *LocalManifest) Write() (bool, error) {
	if !lm.Changed() {
		return false, nil
	}
	if !lm.HasPackage() && lm.Document().Table("workspace") == nil {
		return false, fmt.Errorf("%w: %s has neither a [package] nor a [workspace] table", errs.ErrInvalidManifest, lm.Path)
	}

	data := lm.Bytes()
	result, err := Validate(data)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", errs.ErrInvalidManifest, lm.Path, err)
	}
	if !result.Valid {
		return false, fmt.Errorf("%w: %s: %s", errs.ErrInvalidManifest, lm.Path, result)
	}

	if err := os.WriteFile(lm.Path, data, lm.mode); err != nil {
		return false, fmt.Errorf("%w: writing manifest %s: %w", errs.ErrIO, lm.Path, err)
	}
	lm.original = data
	return true, nil
}

// Find locates the manifest to operate on. An explicit path must name a
// Cargo.toml file or a directory; otherwise the search starts in the
// working directory. Directories are searched upward.
func Find(path string) (string, error) {
	start := path
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("%w: getting working directory: %w", errs.ErrIO, err)
		}
		start = wd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %w", errs.ErrIO, start, err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %s does not exist", errs.ErrNotFound, abs)
	case err != nil:
		return "", fmt.Errorf("%w: %w", errs.ErrIO, err)
	case !info.IsDir():
		if filepath.Base(abs) != FileName {
			return "", fmt.Errorf("%w: the manifest-path must be a path to a %s file", errs.ErrNotFound, FileName)
		}
		return abs, nil
	}

	for dir := abs; ; {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%w: could not find `%s` in `%s` or any parent directory", errs.ErrNotFound, FileName, strings.TrimSuffix(abs, string(filepath.Separator)))
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading file %s: %w", errs.ErrIO, path, err)
	}
	return data, nil
}
