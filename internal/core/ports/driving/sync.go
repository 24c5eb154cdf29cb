package driving

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// SyncRunner triggers ingestion runs per source kind.
type SyncRunner interface {
	// Run synchronises one source kind end-to-end and returns the run
	// summary. One bad document never aborts the run; per-document
	// failures are counted in the summary instead.
	Run(ctx context.Context, kind domain.SourceKind) (*SyncSummary, error)

	// RunAll synchronises every configured source kind independently.
	// A failed kind does not stop the others.
	RunAll(ctx context.Context) (map[domain.SourceKind]*SyncSummary, error)
}

// SyncSummary is the required observable output of one ingestion run.
type SyncSummary struct {
	// Kind is the source kind this summary describes.
	Kind domain.SourceKind

	// New counts documents ingested for the first time.
	New int

	// Changed counts documents re-ingested because their fingerprint moved.
	Changed int

	// Skipped counts documents whose fingerprint was unchanged, plus
	// empty documents filtered before chunking.
	Skipped int

	// Errored counts documents that failed after retries were exhausted.
	Errored int
}

// Total returns the number of documents discovered in the run.
func (s *SyncSummary) Total() int {
	return s.New + s.Changed + s.Skipped + s.Errored
}
