package driven

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// SourceReader fetches documents from one upstream source. Implementations
// (drive folder, code repository, generated-document directory) are
// interchangeable behind this interface.
//
// Readers return documents wholesale: change detection happens in the sync
// engine against the ledger, not inside the reader.
type SourceReader interface {
	// Kind returns the source family this reader serves.
	Kind() domain.SourceKind

	// ListDocuments fetches every eligible document from the source,
	// fully populated including Fingerprint and Text.
	ListDocuments(ctx context.Context) ([]domain.SourceDocument, error)

	// Close releases resources.
	Close() error
}

// WatchableReader is a SourceReader that can signal upstream changes.
// Each value received on the channel means "the source changed, a resync
// is worthwhile"; it carries no per-document detail.
type WatchableReader interface {
	SourceReader

	// Watch emits a signal whenever the source changes. The channel is
	// closed when ctx is cancelled or the watcher fails.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
