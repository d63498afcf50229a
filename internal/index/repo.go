package index

import (
	"fmt"
	"time"
)

// Entry is one indexed artifact.
type Entry struct {
	NotebookPath string
	Field        string
	Checksum     string
	UpdatedAt    time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	NotebookPath string `json:"notebook_path"`
	Field        string `json:"field"`
	Snippet      string `json:"snippet"`
}

// Upsert inserts or replaces an artifact body and its FTS entry.
func (db *DB) Upsert(e Entry, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO artifacts (notebook_path, field, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(notebook_path, field) DO UPDATE SET
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, e.NotebookPath, e.Field, e.Checksum, body, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert artifact: %w", err)
	}

	if err := ftsUpsert(tx, e.NotebookPath, e.Field, body); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes one artifact from the index.
func (db *DB) Delete(notebookPath, field string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, notebookPath, field)
	if _, err := tx.Exec(`DELETE FROM artifacts WHERE notebook_path = ? AND field = ?`, notebookPath, field); err != nil {
		return fmt.Errorf("index: delete artifact: %w", err)
	}
	return tx.Commit()
}

// Clear empties the index.
func (db *DB) Clear() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsClear(tx)
	if _, err := tx.Exec(`DELETE FROM artifacts`); err != nil {
		return fmt.Errorf("index: clear: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for an artifact, or empty string if not indexed.
func (db *DB) GetChecksum(notebookPath, field string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM artifacts WHERE notebook_path = ? AND field = ?`,
		notebookPath, field).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns checksums keyed by storage key (notebook path + "/" + field).
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT notebook_path, field, checksum FROM artifacts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, f, cs string
		if err := rows.Scan(&p, &f, &cs); err != nil {
			return nil, err
		}
		out[p+"/"+f] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed artifacts.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM artifacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
