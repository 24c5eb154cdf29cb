package domain

import (
	"context"
	"errors"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates a source document has no usable text.
	// Such documents are filtered before chunking, counted and reported,
	// never chunked into empty pieces.
	ErrEmptyDocument = errors.New("empty document")

	// ErrLedgerCorrupt indicates the persisted ledger could not be read.
	// The sync engine degrades to treating every document as new; losing
	// the ledger costs redundant re-ingestion, not data.
	ErrLedgerCorrupt = errors.New("ledger corrupt")

	// ErrRateLimited indicates an upstream API quota was exceeded.
	// Eligible for retry with exponential backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding provider is not
	// configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not
	// configured or unreachable.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
)

// IsTransient reports whether err is worth retrying with backoff.
// Rate-limit errors and timeouts qualify; everything else propagates
// immediately.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, context.DeadlineExceeded)
}
