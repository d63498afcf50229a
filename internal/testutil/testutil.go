// Package testutil provides shared test helpers for setting up stores and index databases.
package testutil

import (
	"os"
	"sync"
	"testing"

	"github.com/starford/studyvault/internal/index"
	"github.com/starford/studyvault/internal/storage"
)

// TestDB creates a temporary SQLite index database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "studyvault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary file-backed store.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Change is one recorded notification.
type Change struct {
	Kind string
	Path string
}

// Recorder collects change notifications. Its Notify method has the
// notifier signature.
type Recorder struct {
	mu      sync.Mutex
	changes []Change
}

// Notify records a change.
func (r *Recorder) Notify(kind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, Change{Kind: kind, Path: path})
}

// Changes returns a copy of everything recorded so far.
func (r *Recorder) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Change, len(r.changes))
	copy(out, r.changes)
	return out
}
