// Package storage defines the flat key-value store the notebook tree lives in.
package storage

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
	BackendMemory = "memory"
)

// Provider is the interface for string key-value operations.
// Missing keys are not errors: Get reports them with ok == false.
type Provider interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set creates or overwrites key.
	Set(ctx context.Context, key, value string) error
	// Keys returns every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// RemovePrefix deletes every key starting with prefix.
	RemovePrefix(ctx context.Context, prefix string) error
	// Clear deletes every key.
	Clear(ctx context.Context) error
	// Close releases resources held by the provider.
	Close() error
}

// Open returns the provider for backend rooted at path. For the fs backend
// path is a directory (created if missing); for sqlite it is the database file.
func Open(backend, path string) (Provider, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendFS:
		return NewFS(path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

var (
	_ Provider = (*FS)(nil)
	_ Provider = (*SQLite)(nil)
	_ Provider = (*Memory)(nil)
)
