package index

import "context"

// DocumentIndex defines the interface for document indexing and search.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(ctx context.Context, teamID string, doc Document) error
	DeleteDocument(ctx context.Context, teamID, id string) error
	DocumentIDs(ctx context.Context, teamID string) (map[string]struct{}, error)
	Search(ctx context.Context, teamID string, req SearchRequest) (*SearchResponse, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
