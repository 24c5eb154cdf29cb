package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Retrieval defaults.
const (
	// DefaultTopK is the number of chunks returned per query.
	DefaultTopK = 5

	// DefaultOutOfScopeThreshold is the minimum best-hit score for a
	// result set to count as grounding evidence.
	DefaultOutOfScopeThreshold = 0.3
)

// Retriever answers queries with namespace-filtered top-k vector searches,
// fanning out across all namespaces when the route was ambiguous.
type Retriever struct {
	embedder driven.EmbeddingProvider
	store    driven.VectorStore

	topK             int
	outOfScopeCutoff float64
}

// RetrieverOption configures the retriever.
type RetrieverOption func(*Retriever)

// WithTopK sets the number of results per query.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithOutOfScopeThreshold sets the minimum trusted best-hit score.
func WithOutOfScopeThreshold(t float64) RetrieverOption {
	return func(r *Retriever) {
		if t > 0 {
			r.outOfScopeCutoff = t
		}
	}
}

// NewRetriever creates a retriever.
func NewRetriever(embedder driven.EmbeddingProvider, store driven.VectorStore, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder:         embedder,
		store:            store,
		topK:             DefaultTopK,
		outOfScopeCutoff: DefaultOutOfScopeThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the search. Embedding or store failures propagate whole:
// a stale or partial result presented as authoritative would be worse than
// an explicit error.
func (r *Retriever) Retrieve(
	ctx context.Context,
	query string,
	namespace domain.Namespace,
	categories []string,
) (*domain.RetrievalResult, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var chunks []domain.RetrievedChunk
	if namespace == domain.NamespaceAmbiguous {
		chunks, err = r.fanOut(ctx, queryVec, categories)
	} else {
		if !namespace.Concrete() {
			return nil, fmt.Errorf("%w: namespace %q is not searchable", domain.ErrInvalidInput, namespace)
		}
		chunks, err = r.store.Query(ctx, driven.VectorQuery{
			Vector:     queryVec,
			Namespace:  namespace,
			Categories: categories,
			Limit:      r.topK,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	outOfScope := len(chunks) == 0 || chunks[0].Score < r.outOfScopeCutoff
	logger.Debug("Retrieve %q in %s: %d chunks, out_of_scope=%t", query, namespace, len(chunks), outOfScope)

	return &domain.RetrievalResult{Chunks: chunks, OutOfScope: outOfScope}, nil
}

// fanOut queries every known namespace with the same k, merges the hits and
// keeps the global top-k. The merge sort is stable, so ties keep the fixed
// namespace iteration order - deterministic, not score-jittered.
func (r *Retriever) fanOut(ctx context.Context, queryVec []float32, categories []string) ([]domain.RetrievedChunk, error) {
	var merged []domain.RetrievedChunk
	for _, ns := range domain.KnownNamespaces() {
		hits, err := r.store.Query(ctx, driven.VectorQuery{
			Vector:     queryVec,
			Namespace:  ns,
			Categories: categories,
			Limit:      r.topK,
		})
		if err != nil {
			return nil, fmt.Errorf("namespace %s: %w", ns, err)
		}
		merged = append(merged, hits...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > r.topK {
		merged = merged[:r.topK]
	}
	return merged, nil
}
