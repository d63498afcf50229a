// Package studyservice coordinates the path tree, the artifact index and
// change notifications, and keeps per-client browsing state.
package studyservice

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/studyvault/internal/apperr"
	"github.com/starford/studyvault/internal/models"
	"github.com/starford/studyvault/internal/pathstore"
)

// Browser is one client's position in the tree plus a cache of the last
// listing of that position. The cache doubles as the snapshot CreateChild
// checks duplicates against.
type Browser struct {
	svc *Service

	mu      sync.Mutex
	current string
	items   []models.Item
}

// NewBrowser returns a browser positioned at the root with an empty cache.
// Call Load to populate it.
func NewBrowser(svc *Service) *Browser {
	return &Browser{svc: svc, current: pathstore.RootPath, items: []models.Item{}}
}

// Current returns the current path.
func (b *Browser) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Items returns a copy of the cached listing.
func (b *Browser) Items() []models.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Item, len(b.items))
	copy(out, b.items)
	return out
}

// Load lists path and makes it current. On error the browser is unchanged.
func (b *Browser) Load(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx, path)
}

// Refresh reloads the current path.
func (b *Browser) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx, b.current)
}

// Enter moves into a child group listed in the cache.
func (b *Browser) Enter(ctx context.Context, group string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has(models.Group(group)) {
		return fmt.Errorf("group %q: %w", group, apperr.ErrNotFound)
	}
	return b.load(ctx, pathstore.GroupPath(b.current, group))
}

// Up moves to the parent path. At the root it reloads the root.
func (b *Browser) Up(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx, pathstore.ParentPath(b.current))
}

// Create adds a child at the current path. The cache gains the new item on
// success and is untouched on error.
func (b *Browser) Create(ctx context.Context, name string, kind models.Kind) (models.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, err := b.svc.CreateChild(ctx, name, kind, b.current, b.items)
	if err != nil {
		return models.Item{}, err
	}
	b.items = append(b.items, item)
	return item, nil
}

// Reset wipes the store and returns to an empty root.
func (b *Browser) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.svc.ResetAll(ctx); err != nil {
		return err
	}
	b.current = pathstore.RootPath
	b.items = []models.Item{}
	return nil
}

// NotebookPath resolves a notebook listed in the cache to its path.
func (b *Browser) NotebookPath(name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.has(models.Notebook(name)) {
		return "", fmt.Errorf("notebook %q: %w", name, apperr.ErrNotFound)
	}
	return pathstore.NotebookPath(b.current, name), nil
}

func (b *Browser) load(ctx context.Context, path string) error {
	items, err := b.svc.ListChildren(ctx, path)
	if err != nil {
		return err
	}
	b.current = path
	b.items = items
	return nil
}

func (b *Browser) has(item models.Item) bool {
	for _, it := range b.items {
		if it == item {
			return true
		}
	}
	return false
}
