package driven

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// VectorStore stores and searches embedded chunks. The index writer is the
// sole writer of the payload shape; the retriever reads it back.
type VectorStore interface {
	// EnsureSchema idempotently creates the collection and the secondary
	// indexes needed for filtering (namespace, content_category). Safe to
	// call on every run.
	EnsureSchema(ctx context.Context, dimensions int) error

	// Upsert writes (id, vector, payload) tuples. An existing point with
	// the same ID is overwritten, which is what makes re-ingestion of
	// deterministic chunk IDs idempotent.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Delete removes points by ID. Must be a no-op on empty input.
	Delete(ctx context.Context, ids []string) error

	// Exists reports which of the given IDs are missing from the store.
	// Used to confirm a ledger entry before trusting it as already done.
	Exists(ctx context.Context, ids []string) (missing []string, err error)

	// Query runs one filtered top-k similarity search.
	Query(ctx context.Context, q VectorQuery) ([]domain.RetrievedChunk, error)

	// Close releases resources.
	Close() error
}

// VectorQuery describes one filtered similarity search.
type VectorQuery struct {
	// Vector is the embedded query.
	Vector []float32

	// Namespace scopes the search to one storage namespace.
	Namespace domain.Namespace

	// Categories optionally restricts results to these content categories.
	// Empty means no category filter.
	Categories []string

	// Limit is the maximum number of hits to return.
	Limit int
}
