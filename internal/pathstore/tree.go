package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/studyvault/internal/apperr"
	"github.com/starford/studyvault/internal/models"
	"github.com/starford/studyvault/internal/storage"
)

// Tree implements the group/notebook hierarchy on a storage.Provider.
// It keeps no state besides its locks; callers own the current path and
// any cached listing.
type Tree struct {
	store storage.Provider
	locks keyedMutex
	// writes is held shared by every read-modify-write and exclusively by
	// ResetAll.
	writes      sync.RWMutex
	sharedNames bool
}

// Option configures a Tree.
type Option func(*Tree)

// WithSharedNames controls whether a group and a notebook may share a name
// under the same parent. They can by default since they live under
// different keys.
func WithSharedNames(allowed bool) Option {
	return func(t *Tree) {
		t.sharedNames = allowed
	}
}

// New returns a Tree backed by store.
func New(store storage.Provider, opts ...Option) *Tree {
	t := &Tree{store: store, sharedNames: true}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ListChildren returns the subgroups of path followed by its notebooks, each
// in insertion order. Absent or unparseable lists read as empty.
func (t *Tree) ListChildren(ctx context.Context, path string) ([]models.Item, error) {
	var groups, notebooks []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groups, err = t.readNames(gctx, GroupsKey(path))
		return err
	})
	g.Go(func() error {
		var err error
		notebooks, err = t.readNames(gctx, NotebooksKey(path))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(groups)+len(notebooks))
	for _, name := range groups {
		items = append(items, models.Group(name))
	}
	for _, name := range notebooks {
		items = append(items, models.Notebook(name))
	}
	return items, nil
}

// GroupExists reports whether path is the root or a group recorded in its
// parent's group list. Paths that are not group paths never exist.
func (t *Tree) GroupExists(ctx context.Context, path string) (bool, error) {
	if path == RootPath {
		return true, nil
	}
	if !IsGroupPath(path) {
		return false, nil
	}
	names, err := t.readNames(ctx, GroupsKey(ParentPath(path)))
	if err != nil {
		return false, err
	}
	return slices.Contains(names, lastSegment(path)), nil
}

// CreateChild validates name and appends it to the parent's list of kind.
//
// existing is the caller's last listing of parent and is checked first.
// The stored list is then re-read under a per-key lock and checked again
// before the whole list is written back, so concurrent creations in one
// process cannot lose each other's updates.
func (t *Tree) CreateChild(ctx context.Context, name string, kind models.Kind, parent string, existing []models.Item) (models.Item, error) {
	if kind != models.KindGroup && kind != models.KindNotebook {
		return models.Item{}, apperr.Invalid(fmt.Sprintf("unknown item type %s", kind))
	}
	trimmed, err := ValidateName(name, kind)
	if err != nil {
		return models.Item{}, err
	}
	if slices.Contains(models.NamesOfKind(existing, kind), trimmed) {
		return models.Item{}, duplicate(kind)
	}
	other := otherKind(kind)
	if !t.sharedNames && slices.Contains(models.NamesOfKind(existing, other), trimmed) {
		return models.Item{}, sharedName(other, trimmed)
	}

	t.writes.RLock()
	defer t.writes.RUnlock()
	key := listKey(parent, kind)
	unlock := t.locks.Lock(key)
	defer unlock()

	stored, err := t.readNames(ctx, key)
	if err != nil {
		return models.Item{}, err
	}
	if slices.Contains(stored, trimmed) {
		return models.Item{}, duplicate(kind)
	}
	if !t.sharedNames {
		others, err := t.readNames(ctx, listKey(parent, other))
		if err != nil {
			return models.Item{}, err
		}
		if slices.Contains(others, trimmed) {
			return models.Item{}, sharedName(other, trimmed)
		}
	}

	data, err := json.Marshal(append(stored, trimmed))
	if err != nil {
		return models.Item{}, fmt.Errorf("pathstore: encode %s: %w", key, err)
	}
	if err := t.store.Set(ctx, key, string(data)); err != nil {
		return models.Item{}, storageErr("write "+key, err)
	}
	return models.Item{Name: trimmed, Kind: kind}, nil
}

// ResetAll clears the whole store. It cannot be undone. It waits for
// in-flight writes so none of them lands after the clear.
func (t *Tree) ResetAll(ctx context.Context) error {
	t.writes.Lock()
	defer t.writes.Unlock()
	if err := t.store.Clear(ctx); err != nil {
		return storageErr("clear", err)
	}
	return nil
}

// Artifact returns the field stored under a notebook path, or
// apperr.ErrNotFound.
func (t *Tree) Artifact(ctx context.Context, notebookPath, field string) (string, error) {
	if err := validateField(field); err != nil {
		return "", err
	}
	key := ArtifactKey(notebookPath, field)
	v, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return "", storageErr("read "+key, err)
	}
	if !ok {
		return "", fmt.Errorf("pathstore: %s: %w", key, apperr.ErrNotFound)
	}
	return v, nil
}

// SetArtifact creates or overwrites a field under a notebook path.
func (t *Tree) SetArtifact(ctx context.Context, notebookPath, field, value string) error {
	return t.UpdateArtifact(ctx, notebookPath, field, func(string, bool) (string, error) {
		return value, nil
	})
}

// UpdateArtifact replaces a field with the result of fn, which receives the
// current value. The read and write happen under the field's key lock; an
// error from fn aborts without writing.
func (t *Tree) UpdateArtifact(ctx context.Context, notebookPath, field string, fn func(current string, found bool) (string, error)) error {
	if err := validateField(field); err != nil {
		return err
	}
	t.writes.RLock()
	defer t.writes.RUnlock()
	key := ArtifactKey(notebookPath, field)
	unlock := t.locks.Lock(key)
	defer unlock()

	current, found, err := t.store.Get(ctx, key)
	if err != nil {
		return storageErr("read "+key, err)
	}
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if err := t.store.Set(ctx, key, next); err != nil {
		return storageErr("write "+key, err)
	}
	return nil
}

// ArtifactFields lists the fields stored under a notebook path.
func (t *Tree) ArtifactFields(ctx context.Context, notebookPath string) ([]string, error) {
	prefix := notebookPath + Sep
	keys, err := t.store.Keys(ctx, prefix)
	if err != nil {
		return nil, storageErr("keys "+prefix, err)
	}
	fields := []string{}
	for _, k := range keys {
		f := strings.TrimPrefix(k, prefix)
		if f != "" && !strings.Contains(f, Sep) {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (t *Tree) readNames(ctx context.Context, key string) ([]string, error) {
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, storageErr("read "+key, err)
	}
	names := []string{}
	if !ok {
		return names, nil
	}
	if err := json.Unmarshal([]byte(raw), &names); err != nil || names == nil {
		return []string{}, nil
	}
	return names, nil
}

func listKey(parent string, kind models.Kind) string {
	if kind == models.KindNotebook {
		return NotebooksKey(parent)
	}
	return GroupsKey(parent)
}

func otherKind(kind models.Kind) models.Kind {
	if kind == models.KindGroup {
		return models.KindNotebook
	}
	return models.KindGroup
}

func duplicate(kind models.Kind) error {
	return apperr.Duplicate(fmt.Sprintf("%s with same name already exists!", kind))
}

func sharedName(other models.Kind, name string) error {
	return apperr.Duplicate(fmt.Sprintf("a %s named %q already exists here", other, name))
}

func storageErr(op string, err error) error {
	return fmt.Errorf("pathstore: %s: %w: %w", op, apperr.ErrStorage, err)
}
