package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/pagecraft/internal/apperr"
	"github.com/starford/pagecraft/internal/checksum"
	"github.com/starford/pagecraft/internal/models"
)

const (
	// Ext is the file extension of work documents.
	Ext = ".json"
	// AssetsDir is the subdirectory that holds uploaded assets.
	AssetsDir = "assets"

	tmpPattern = ".pagecraft-tmp-*"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the works directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute works directory.
func (f *FS) Root() string {
	return f.root
}

// ValidID reports whether id can name a work file: a non-empty plain name
// without separators, dots-only segments or a leading dot.
func ValidID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, `/\:`) && filepath.Base(id) == id
}

// IDFromPath returns the work id for a path relative to the works root,
// or false when the path is not a work document.
func IDFromPath(rel string) (string, bool) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if strings.Contains(rel, "/") || !strings.HasSuffix(rel, Ext) {
		return "", false
	}
	id := strings.TrimSuffix(rel, Ext)
	if !ValidID(id) {
		return "", false
	}
	return id, true
}

func (f *FS) workPath(id string) (string, error) {
	if !ValidID(id) {
		return "", fmt.Errorf("storage: invalid work id %q: %w", id, apperr.ErrInvalidInput)
	}
	return f.safePath(id + Ext)
}

// safePath resolves a relative path against the root and rejects any
// result that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes works root: %s", rel)
	}
	return abs, nil
}

// List returns metadata for every <id>.json directly under the root.
func (f *FS) List() ([]models.WorkMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.WorkMetadata
	for _, d := range entries {
		if d.IsDir() {
			continue
		}
		id, ok := IDFromPath(d.Name())
		if !ok {
			continue
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, models.WorkMetadata{
			ID:        id,
			Path:      d.Name(),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Read returns the raw document of a work.
func (f *FS) Read(id string) ([]byte, error) {
	abs, err := f.workPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: read %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", id, err)
	}
	return data, nil
}

// Write atomically replaces the document of a work.
func (f *FS) Write(id string, content []byte) error {
	abs, err := f.workPath(id)
	if err != nil {
		return err
	}
	return writeAtomic(abs, content)
}

// Delete removes a work document.
func (f *FS) Delete(id string) error {
	abs, err := f.workPath(id)
	if err != nil {
		return err
	}
	err = os.Remove(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a work document is present.
func (f *FS) Exists(id string) bool {
	abs, err := f.workPath(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// AssetPath validates that name is a plain file name and returns its
// absolute path under the assets dir.
func (f *FS) AssetPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: asset name is required: %w", apperr.ErrInvalidInput)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("storage: invalid asset name %q: %w", name, apperr.ErrInvalidInput)
	}
	return f.safePath(filepath.Join(AssetsDir, cleaned))
}

// WriteAsset stores data as assets/<name>. Existing assets are never
// overwritten.
func (f *FS) WriteAsset(name string, data []byte) error {
	abs, err := f.AssetPath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err == nil {
		return fmt.Errorf("storage: asset %s: %w", name, apperr.ErrAlreadyExists)
	}
	return writeAtomic(abs, data)
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
