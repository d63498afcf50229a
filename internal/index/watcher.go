package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/studyvault/internal/artifact"
	"github.com/starford/studyvault/internal/pathstore"
	"github.com/starford/studyvault/internal/storage"
)

// Change kinds reported by Watch.
const (
	ChangeArtifact = "artifact.updated"
	ChangeTree     = "tree.updated"
)

// EventCallback is called after a watcher-observed change.
// path is the notebook path for artifacts and the group path for lists.
type EventCallback func(kind string, path string)

// Watch observes the data directory of a file-backed store for edits made
// outside this process, keeps text artifacts indexed and reports every
// change through cb (if non-nil) until ctx is cancelled.
//
// Rename events trigger a debounced reconciliation pass.
func Watch(ctx context.Context, db *DB, store *storage.FS, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(store.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", store.Root()))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(ctx, db, store, logger); err != nil {
				logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			key, ok := storage.KeyFromFileName(filepath.Base(ev.Name))
			if !ok {
				continue
			}

			nb, field, isArtifact := pathstore.SplitArtifactKey(key)
			if !isArtifact {
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) != 0 && cb != nil {
					cb(ChangeTree, listOwner(key))
				}
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if artifact.IsText(field) {
					value, found, readErr := store.Get(ctx, key)
					if readErr != nil || !found {
						continue
					}
					if idxErr := IndexArtifact(db, nb, field, value); idxErr != nil {
						logger.Warn("watcher: index failed", slog.String("key", key), slog.String("error", idxErr.Error()))
						continue
					}
					logger.Debug("watcher: indexed", slog.String("key", key))
				}
				if cb != nil {
					cb(ChangeArtifact, nb)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.Delete(nb, field); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("key", key), slog.String("error", delErr.Error()))
					continue
				}
				if cb != nil {
					cb(ChangeArtifact, nb)
				}

			case ev.Op&fsnotify.Rename != 0:
				// The new name arrives as a separate Create event; a
				// reconciliation pass catches anything that was missed.
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// listOwner maps a name-list key back to the group path it belongs to.
func listOwner(key string) string {
	return strings.TrimSuffix(key, pathstore.NotebookSuffix)
}
