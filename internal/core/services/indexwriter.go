package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// DefaultEmbedBatchSize caps how many texts go into a single embedding
// request, independent of how many documents are in flight upstream.
const DefaultEmbedBatchSize = 64

// IndexWriter embeds chunk text in bounded batches and writes
// (id, vector, payload) tuples to the vector store. It is the sole writer
// of the payload shape the retriever reads back.
type IndexWriter struct {
	embedder  driven.EmbeddingProvider
	store     driven.VectorStore
	batchSize int
}

// IndexWriterOption configures the index writer.
type IndexWriterOption func(*IndexWriter)

// WithEmbedBatchSize sets the maximum number of texts per embedding request.
func WithEmbedBatchSize(n int) IndexWriterOption {
	return func(w *IndexWriter) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// NewIndexWriter creates an index writer.
func NewIndexWriter(embedder driven.EmbeddingProvider, store driven.VectorStore, opts ...IndexWriterOption) *IndexWriter {
	w := &IndexWriter{
		embedder:  embedder,
		store:     store,
		batchSize: DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnsureSchema idempotently creates the destination collection and its
// filter indexes. Safe to call on every run.
func (w *IndexWriter) EnsureSchema(ctx context.Context) error {
	if err := w.store.EnsureSchema(ctx, w.embedder.Dimensions()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert embeds and writes the given chunks, returning the IDs actually
// written. Chunks with empty text are filtered out first. The embedding
// provider's order contract (output index i corresponds to input text i)
// is what keeps vectors zipped to the right chunks.
func (w *IndexWriter) Upsert(ctx context.Context, chunks []domain.Chunk) ([]string, error) {
	kept := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			logger.Debug("Dropping empty chunk %s", chunk.ID)
			continue
		}
		kept = append(kept, chunk)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(kept))
	for start := 0; start < len(kept); start += w.batchSize {
		end := start + w.batchSize
		if end > len(kept) {
			end = len(kept)
		}
		batch := kept[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := w.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(vectors), len(batch))
		}

		records := make([]domain.VectorRecord, len(batch))
		for i, chunk := range batch {
			records[i] = domain.VectorRecord{
				ID:     chunk.ID,
				Vector: vectors[i],
				Chunk:  chunk,
			}
		}

		if err := w.store.Upsert(ctx, records); err != nil {
			return nil, fmt.Errorf("upsert batch: %w", err)
		}

		for _, record := range records {
			ids = append(ids, record.ID)
		}
	}

	return ids, nil
}

// Delete removes the given chunk IDs from the vector store. No-op on empty
// input.
func (w *IndexWriter) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := w.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete %d chunks: %w", len(ids), err)
	}
	return nil
}

// VerifyExist confirms the store still holds every one of the given IDs.
// Supports resumable sync: a ledger entry from an interrupted earlier run
// is only trusted as "already done" when its chunks are really downstream.
func (w *IndexWriter) VerifyExist(ctx context.Context, ids []string) (bool, []string, error) {
	if len(ids) == 0 {
		return true, nil, nil
	}
	missing, err := w.store.Exists(ctx, ids)
	if err != nil {
		return false, nil, fmt.Errorf("verify %d chunks: %w", len(ids), err)
	}
	return len(missing) == 0, missing, nil
}
