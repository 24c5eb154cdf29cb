package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// SyncLedger is the system of record for one source kind: what did we
// already ingest, and what chunk IDs did it produce. It holds the working
// copy in memory and defers persistence to the end of a run to bound I/O.
//
// The in-memory map is mutex-guarded so the sync engine can run documents
// with bounded parallelism against a single ledger.
type SyncLedger struct {
	kind  domain.SourceKind
	store driven.LedgerStore
	force bool

	mu      sync.Mutex
	entries map[string]domain.LedgerEntry
}

// NewSyncLedger creates a ledger for one source kind backed by the given
// store. When force is true, IsChanged always reports true, which turns the
// next run into a full re-index.
func NewSyncLedger(kind domain.SourceKind, store driven.LedgerStore, force bool) *SyncLedger {
	return &SyncLedger{
		kind:    kind,
		store:   store,
		force:   force,
		entries: make(map[string]domain.LedgerEntry),
	}
}

// Load reads the persisted ledger. A corrupt or unreadable ledger degrades
// to an empty one - every document is treated as new, which costs redundant
// re-ingestion rather than blocking the sync or losing data.
func (l *SyncLedger) Load(ctx context.Context) error {
	entries, err := l.store.Load(ctx, l.kind)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerCorrupt) {
			logger.Warn("Ledger for %s is corrupt, treating all documents as new: %v", l.kind, err)
			l.mu.Lock()
			l.entries = make(map[string]domain.LedgerEntry)
			l.mu.Unlock()
			return nil
		}
		return fmt.Errorf("load ledger %s: %w", l.kind, err)
	}

	if entries == nil {
		entries = make(map[string]domain.LedgerEntry)
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}

// IsChanged reports whether a document needs re-processing: true when the
// source key is unknown, the stored fingerprint differs, or force-reindex
// is on.
func (l *SyncLedger) IsChanged(sourceKey, fingerprint string) bool {
	if l.force {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[sourceKey]
	if !ok {
		return true
	}
	return entry.Fingerprint != fingerprint
}

// Known reports whether the ledger has any entry for the source key,
// regardless of fingerprint. Distinguishes NEW from CHANGED.
func (l *SyncLedger) Known(sourceKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[sourceKey]
	return ok
}

// OldChunkIDs returns the chunk IDs previously recorded for a source key,
// empty when absent. These are the IDs to delete before reinserting.
func (l *SyncLedger) OldChunkIDs(sourceKey string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[sourceKey]
	if !ok {
		return nil
	}
	ids := make([]string, len(entry.ChunkIDs))
	copy(ids, entry.ChunkIDs)
	return ids
}

// Record upserts the entry for a source key.
func (l *SyncLedger) Record(sourceKey, fingerprint string, chunkIDs []string) {
	ids := make([]string, len(chunkIDs))
	copy(ids, chunkIDs)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[sourceKey] = domain.LedgerEntry{
		Fingerprint: fingerprint,
		ChunkIDs:    ids,
	}
}

// Len returns the number of recorded entries.
func (l *SyncLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Persist writes the working copy to durable storage. Called once per run,
// after the full pass over the source.
func (l *SyncLedger) Persist(ctx context.Context) error {
	l.mu.Lock()
	snapshot := make(map[string]domain.LedgerEntry, len(l.entries))
	for k, v := range l.entries {
		snapshot[k] = v
	}
	l.mu.Unlock()

	if err := l.store.Save(ctx, l.kind, snapshot); err != nil {
		return fmt.Errorf("persist ledger %s: %w", l.kind, err)
	}
	return nil
}
