package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// Ensure SyncEngine implements the interface.
var _ driving.SyncRunner = (*SyncEngine)(nil)

// docState is the lifecycle outcome of one discovered document.
type docState int

const (
	docSkipped docState = iota
	docNew
	docChanged
	docErrored
)

// SyncEngine orchestrates ingestion for the configured source kinds.
//
// Each document moves through DISCOVERED -> {SKIPPED | NEW | CHANGED} ->
// RECONCILED independently; there is no ordering requirement across
// documents, so a bounded worker pool processes them concurrently. The
// ledger is the only shared mutable state and guards itself.
type SyncEngine struct {
	readers     map[domain.SourceKind]driven.SourceReader
	ledgerStore driven.LedgerStore
	chunker     driven.Chunker
	writer      *IndexWriter

	force          bool
	verify         bool
	workers        int
	retryAttempts  int
	retryBaseDelay time.Duration
}

// SyncEngineOption configures the engine.
type SyncEngineOption func(*SyncEngine)

// WithForceReindex makes every document count as changed, re-ingesting the
// whole corpus regardless of fingerprints.
func WithForceReindex(force bool) SyncEngineOption {
	return func(e *SyncEngine) { e.force = force }
}

// WithVerifyExisting makes the engine confirm a ledger entry's chunks are
// really in the vector store before trusting it as already done. Protects
// against partial failures from an earlier interrupted run.
func WithVerifyExisting(verify bool) SyncEngineOption {
	return func(e *SyncEngine) { e.verify = verify }
}

// WithWorkers sets the number of concurrent document workers.
func WithWorkers(n int) SyncEngineOption {
	return func(e *SyncEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRetryPolicy overrides the transient-failure retry policy.
func WithRetryPolicy(attempts int, baseDelay time.Duration) SyncEngineOption {
	return func(e *SyncEngine) {
		if attempts > 0 {
			e.retryAttempts = attempts
		}
		if baseDelay > 0 {
			e.retryBaseDelay = baseDelay
		}
	}
}

// NewSyncEngine creates a sync engine over the given readers.
func NewSyncEngine(
	readers []driven.SourceReader,
	ledgerStore driven.LedgerStore,
	chunker driven.Chunker,
	writer *IndexWriter,
	opts ...SyncEngineOption,
) *SyncEngine {
	byKind := make(map[domain.SourceKind]driven.SourceReader, len(readers))
	for _, reader := range readers {
		byKind[reader.Kind()] = reader
	}

	e := &SyncEngine{
		readers:        byKind,
		ledgerStore:    ledgerStore,
		chunker:        chunker,
		writer:         writer,
		workers:        4,
		retryAttempts:  DefaultRetryAttempts,
		retryBaseDelay: DefaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Kinds returns the configured source kinds in their fixed order.
func (e *SyncEngine) Kinds() []domain.SourceKind {
	kinds := make([]domain.SourceKind, 0, len(e.readers))
	for _, kind := range []domain.SourceKind{domain.SourceKindDrive, domain.SourceKindGitHub, domain.SourceKindLocalDocs} {
		if _, ok := e.readers[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Run synchronises one source kind end-to-end.
func (e *SyncEngine) Run(ctx context.Context, kind domain.SourceKind) (*driving.SyncSummary, error) {
	reader, ok := e.readers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no reader for source kind %q", domain.ErrInvalidInput, kind)
	}

	logger.Section(fmt.Sprintf("Sync %s", kind))

	ledger := NewSyncLedger(kind, e.ledgerStore, e.force)
	if err := ledger.Load(ctx); err != nil {
		return nil, err
	}

	if err := e.writer.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	var docs []domain.SourceDocument
	err := withRetry(ctx, e.retryAttempts, e.retryBaseDelay, func() error {
		var listErr error
		docs, listErr = reader.ListDocuments(ctx)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("list %s documents: %w", kind, err)
	}
	logger.Info("Discovered %d documents in %s", len(docs), kind)

	summary := &driving.SyncSummary{Kind: kind}
	var summaryMu sync.Mutex
	count := func(state docState) {
		summaryMu.Lock()
		defer summaryMu.Unlock()
		switch state {
		case docNew:
			summary.New++
		case docChanged:
			summary.Changed++
		case docSkipped:
			summary.Skipped++
		case docErrored:
			summary.Errored++
		}
	}

	// Bounded worker pool. Cancellation is cooperative at document
	// granularity: in-flight documents finish, no new ones start.
	jobs := make(chan domain.SourceDocument)
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				state, err := e.processDocument(ctx, ledger, doc)
				if err != nil {
					logger.Warn("Document %s failed: %v", doc.SourceKey, err)
					count(docErrored)
					continue
				}
				count(state)
			}
		}()
	}

dispatch:
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- doc:
		}
	}
	close(jobs)
	wg.Wait()

	// Persist once per run. A crash before this point only costs a
	// re-ingestion that the deterministic chunk IDs turn into idempotent
	// overwrites.
	if err := ledger.Persist(ctx); err != nil {
		return summary, err
	}

	logger.Info("Sync %s complete: %d new, %d changed, %d skipped, %d errored",
		kind, summary.New, summary.Changed, summary.Skipped, summary.Errored)

	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}

// RunAll synchronises every configured source kind independently. A failed
// kind does not stop the others; their errors are joined.
func (e *SyncEngine) RunAll(ctx context.Context) (map[domain.SourceKind]*driving.SyncSummary, error) {
	summaries := make(map[domain.SourceKind]*driving.SyncSummary)
	var errs []error

	for _, kind := range e.Kinds() {
		summary, err := e.Run(ctx, kind)
		if summary != nil {
			summaries[kind] = summary
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", kind, err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	if len(errs) > 0 {
		return summaries, errors.Join(errs...)
	}
	return summaries, nil
}

// processDocument runs the per-document state machine: decide
// {skip, new, changed}, reconcile stale chunks, chunk, embed, upsert,
// record.
func (e *SyncEngine) processDocument(
	ctx context.Context,
	ledger *SyncLedger,
	doc domain.SourceDocument,
) (docState, error) {
	if !ledger.IsChanged(doc.SourceKey, doc.Fingerprint) {
		if !e.verify {
			return docSkipped, nil
		}
		// Trust the ledger only if the chunks are really downstream.
		allPresent, missing, err := e.writer.VerifyExist(ctx, ledger.OldChunkIDs(doc.SourceKey))
		if err != nil {
			return docErrored, err
		}
		if allPresent {
			return docSkipped, nil
		}
		logger.Warn("Document %s recorded but %d chunks missing downstream, re-ingesting", doc.SourceKey, len(missing))
	}

	state := docNew
	if ledger.Known(doc.SourceKey) {
		state = docChanged

		// Delete before reinsert so a shrinking chunk count leaves no
		// orphans. Best-effort: old IDs are deterministic, so a leftover
		// is overwritten or harmless, and blocking ingestion would be
		// worse.
		oldIDs := ledger.OldChunkIDs(doc.SourceKey)
		err := withRetry(ctx, e.retryAttempts, e.retryBaseDelay, func() error {
			return e.writer.Delete(ctx, oldIDs)
		})
		if err != nil {
			logger.Warn("Stale chunk deletion for %s failed, proceeding to reinsert: %v", doc.SourceKey, err)
		}
	}

	chunks, err := e.chunker.Chunk(doc)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDocument) {
			logger.Warn("Skipping empty document %s", doc.SourceKey)
			if state == docChanged {
				// The old chunks were already deleted above. Record the
				// new fingerprint with no chunk IDs so the entry matches
				// the store and the next run skips the document.
				ledger.Record(doc.SourceKey, doc.Fingerprint, nil)
			}
			return docSkipped, nil
		}
		return docErrored, fmt.Errorf("chunk: %w", err)
	}

	var ids []string
	err = withRetry(ctx, e.retryAttempts, e.retryBaseDelay, func() error {
		var upsertErr error
		ids, upsertErr = e.writer.Upsert(ctx, chunks)
		return upsertErr
	})
	if err != nil {
		// The ledger entry is left untouched so the document is retried
		// whole on the next run.
		return docErrored, fmt.Errorf("upsert: %w", err)
	}

	ledger.Record(doc.SourceKey, doc.Fingerprint, ids)
	logger.Debug("Reconciled %s: %d chunks", doc.SourceKey, len(ids))
	return state, nil
}
