// Package fs implements [secretary.Medium] on a directory: one file per key.
package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/secretary"
)

// Interface compliance check.
var _ secretary.Medium = (*Medium)(nil)

const tmpSuffix = ".tmp"

// Medium stores each key as a file under a root directory. Writes go through
// a temp file and rename, so a reader never sees a partial value.
type Medium struct {
	dir string
}

// New creates the directory if needed and returns a Medium rooted there.
func New(dir string) (*Medium, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("fs: create directory: %w", err)
	}
	return &Medium{dir: dir}, nil
}

// Dir returns the root directory.
func (m *Medium) Dir() string { return m.dir }

// Save writes value under key.
func (m *Medium) Save(key string, value []byte) error {
	path, err := m.path(key)
	if err != nil {
		return err
	}
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("fs: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("fs: rename temp file: %w", err)
	}
	return nil
}

// Load returns the value stored under key, or [secretary.ErrNotFound].
func (m *Medium) Load(key string) ([]byte, error) {
	path, err := m.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("fs: %s: %w", key, secretary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fs: %w", err)
	}
	return data, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Medium) Delete(key string) error {
	path, err := m.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("fs: %w", err)
	}
	return nil
}

// Keys returns the stored keys matching a doublestar pattern, sorted.
func (m *Medium) Keys(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("fs: invalid pattern %q: %w", pattern, secretary.ErrValidation)
	}
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("fs: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("fs: %w", err)
		}
		if ok {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteMatching removes every key matching pattern and returns how many
// were removed.
func (m *Medium) DeleteMatching(pattern string) (int, error) {
	keys, err := m.Keys(pattern)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := m.Delete(k); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

func (m *Medium) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasSuffix(key, tmpSuffix) {
		return "", fmt.Errorf("fs: invalid key %q: %w", key, secretary.ErrValidation)
	}
	return filepath.Join(m.dir, key), nil
}
