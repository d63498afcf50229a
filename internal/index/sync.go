package index

import (
	"context"
	"log/slog"

	"github.com/starford/studyvault/internal/artifact"
	"github.com/starford/studyvault/internal/checksum"
	"github.com/starford/studyvault/internal/pathstore"
	"github.com/starford/studyvault/internal/storage"
)

// Sync walks the store and brings the index up to date:
//   - new/changed text artifacts are upserted
//   - artifacts removed from the store are deleted from the index
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) error {
	keys, err := store.Keys(ctx, pathstore.RootPath)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		nb, field, ok := pathstore.SplitArtifactKey(key)
		if !ok || !artifact.IsText(field) {
			continue
		}
		live[key] = struct{}{}

		value, found, err := store.Get(ctx, key)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		if !found || checksums[key] == checksum.String(value) {
			continue
		}
		if err := IndexArtifact(db, nb, field, value); err != nil {
			logger.Warn("sync: index failed", slog.String("key", key), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("key", key))
		}
	}

	// Remove stale entries.
	for key := range checksums {
		if _, ok := live[key]; ok {
			continue
		}
		nb, field, ok := pathstore.SplitArtifactKey(key)
		if !ok {
			continue
		}
		if err := db.Delete(nb, field); err != nil {
			logger.Warn("sync: delete failed", slog.String("key", key), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("key", key))
		}
	}

	return nil
}

// IndexArtifact upserts one artifact value.
func IndexArtifact(db *DB, notebookPath, field, value string) error {
	return db.Upsert(Entry{
		NotebookPath: notebookPath,
		Field:        field,
		Checksum:     checksum.String(value),
	}, value)
}
