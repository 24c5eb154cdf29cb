package driven

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// LedgerStore persists the sync ledger for each source kind: the mapping
// from source key to {fingerprint, chunk IDs}.
//
// The stored format must be human-inspectable and round-trippable:
// write-then-read produces an identical structure.
type LedgerStore interface {
	// Load reads the full ledger for a source kind. A missing ledger
	// returns an empty map and no error. An unreadable or corrupt ledger
	// returns an empty map and an error wrapping domain.ErrLedgerCorrupt,
	// so callers can degrade to "treat everything as new".
	Load(ctx context.Context, kind domain.SourceKind) (map[string]domain.LedgerEntry, error)

	// Save writes the full ledger for a source kind.
	Save(ctx context.Context, kind domain.SourceKind, entries map[string]domain.LedgerEntry) error
}
