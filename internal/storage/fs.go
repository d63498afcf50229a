package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	fsExt        = ".val"
	maxFileName  = 250
	fsTempPrefix = ".studyvault-tmp-"
)

// FS implements Provider with one file per key in a flat directory.
// File names are the path-escaped key, so "/" never reaches the file system.
type FS struct {
	root string // absolute path to the data directory
}

// NewFS creates a new FS provider rooted at the given directory,
// creating it when it does not exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir root: %w", err)
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

// Root returns the absolute data directory.
func (f *FS) Root() string { return f.root }

// FileName returns the file name used for key.
func FileName(key string) string {
	return url.PathEscape(key) + fsExt
}

// KeyFromFileName reverses FileName. ok is false for files that are not values.
func KeyFromFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, fsExt) || strings.HasPrefix(name, fsTempPrefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, fsExt))
	if err != nil {
		return "", false
	}
	return key, true
}

func (f *FS) file(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage: empty key")
	}
	name := FileName(key)
	if len(name) > maxFileName {
		return "", fmt.Errorf("storage: key too long for fs backend: %d bytes", len(name))
	}
	return filepath.Join(f.root, name), nil
}

// Get reads the file for key.
func (f *FS) Get(_ context.Context, key string) (string, bool, error) {
	p, err := f.file(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set atomically writes value: tmp file → fsync → rename.
func (f *FS) Set(_ context.Context, key, value string) error {
	p, err := f.file(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, fsTempPrefix+"*")
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

	if _, err := tmp.WriteString(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Keys lists the directory and decodes file names.
func (f *FS) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := KeyFromFileName(e.Name())
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

// RemovePrefix deletes the files of every matching key.
func (f *FS) RemovePrefix(ctx context.Context, prefix string) error {
	keys, err := f.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		p, err := f.file(k)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: delete %s: %w", k, err)
		}
	}
	return nil
}

// Clear deletes every value file.
func (f *FS) Clear(ctx context.Context) error {
	return f.RemovePrefix(ctx, "")
}

// Close is a no-op for the file backend.
func (f *FS) Close() error { return nil }
