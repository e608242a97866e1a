// internal/prompts/store.go
package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const extension = ".txt"

var (
	// ErrInvalidName is returned when a name sanitizes to nothing.
	ErrInvalidName = errors.New("invalid prompt name")
	// ErrNotFound is returned when no prompt exists under a name.
	ErrNotFound = errors.New("prompt not found")

	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// Store keeps named prompt texts as <dir>/<name>.txt files.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, dir: dir}
}

// SanitizeName replaces every character outside [a-zA-Z0-9_-] with '_'.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
}

func (s *Store) path(name string) (string, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, clean+extension), nil
}

// Save writes content under name and returns the sanitized name used.
func (s *Store) Save(name, content string) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create prompts directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	return strings.TrimSuffix(filepath.Base(path), extension), nil
}

// Load returns the text saved under name.
func (s *Store) Load(name string) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return string(data), nil
}

// List returns the sorted names of all saved prompts. A missing directory
// yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != extension {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), extension))
	}
	sort.Strings(names)
	return names, nil
}
