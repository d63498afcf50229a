//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS artifacts_fts USING fts5(
			notebook_path UNINDEXED,
			field UNINDEXED,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, notebookPath, field, body string) error {
	_, _ = tx.Exec(`DELETE FROM artifacts_fts WHERE notebook_path = ? AND field = ?`, notebookPath, field)
	_, err := tx.Exec(`INSERT INTO artifacts_fts (notebook_path, field, body) VALUES (?, ?, ?)`,
		notebookPath, field, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, notebookPath, field string) {
	_, _ = tx.Exec(`DELETE FROM artifacts_fts WHERE notebook_path = ? AND field = ?`, notebookPath, field)
}

func ftsClear(tx *sql.Tx) {
	_, _ = tx.Exec(`DELETE FROM artifacts_fts`)
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT notebook_path,
		       field,
		       snippet(artifacts_fts, 2, '<b>', '</b>', '...', 32)
		FROM artifacts_fts
		WHERE artifacts_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.NotebookPath, &r.Field, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
