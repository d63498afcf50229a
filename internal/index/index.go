package index

// ArtifactIndex defines the interface for artifact indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ArtifactIndex interface {
	Upsert(e Entry, body string) error
	Delete(notebookPath, field string) error
	Clear() error
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies ArtifactIndex at compile time.
var _ ArtifactIndex = (*DB)(nil)
