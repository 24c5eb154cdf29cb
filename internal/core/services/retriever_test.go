package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

func hit(title string, score float64, ns domain.Namespace) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		DocTitle:  title,
		Score:     score,
		Namespace: ns,
		Text:      "text of " + title,
	}
}

func TestRetriever_Retrieve_ConcreteNamespace(t *testing.T) {
	store := newMockVectorStore()
	store.queryHits[domain.NamespaceTechnical] = []domain.RetrievedChunk{
		hit("doc-a", 0.9, domain.NamespaceTechnical),
		hit("doc-b", 0.7, domain.NamespaceTechnical),
	}

	retriever := NewRetriever(newMockEmbedder(), store)

	result, err := retriever.Retrieve(context.Background(), "query", domain.NamespaceTechnical, nil)

	require.NoError(t, err)
	assert.False(t, result.OutOfScope)
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "doc-a", result.Chunks[0].DocTitle)
}

func TestRetriever_Retrieve_AmbiguousFansOutAndMerges(t *testing.T) {
	store := newMockVectorStore()
	store.queryHits[domain.NamespaceTechnical] = []domain.RetrievedChunk{
		hit("tech-1", 0.9, domain.NamespaceTechnical),
		hit("tech-2", 0.7, domain.NamespaceTechnical),
	}
	store.queryHits[domain.NamespaceNontechnical] = []domain.RetrievedChunk{
		hit("nt-1", 0.85, domain.NamespaceNontechnical),
		hit("nt-2", 0.6, domain.NamespaceNontechnical),
	}

	retriever := NewRetriever(newMockEmbedder(), store, WithTopK(2))

	result, err := retriever.Retrieve(context.Background(), "query", domain.NamespaceAmbiguous, nil)

	require.NoError(t, err)
	require.Len(t, result.Chunks, 2, "merged result keeps the global top-k")
	assert.Equal(t, "tech-1", result.Chunks[0].DocTitle)
	assert.Equal(t, "nt-1", result.Chunks[1].DocTitle)
	assert.False(t, result.OutOfScope)
}

func TestRetriever_Retrieve_AmbiguousMergeTiesAreDeterministic(t *testing.T) {
	store := newMockVectorStore()
	store.queryHits[domain.NamespaceTechnical] = []domain.RetrievedChunk{
		hit("tech-tied", 0.8, domain.NamespaceTechnical),
	}
	store.queryHits[domain.NamespaceNontechnical] = []domain.RetrievedChunk{
		hit("nt-tied", 0.8, domain.NamespaceNontechnical),
	}

	retriever := NewRetriever(newMockEmbedder(), store, WithTopK(1))

	// Stable merge: ties keep the fixed namespace order on every run.
	for i := 0; i < 5; i++ {
		result, err := retriever.Retrieve(context.Background(), "query", domain.NamespaceAmbiguous, nil)
		require.NoError(t, err)
		require.Len(t, result.Chunks, 1)
		assert.Equal(t, "tech-tied", result.Chunks[0].DocTitle)
	}
}

func TestRetriever_Retrieve_EmptyResultIsOutOfScope(t *testing.T) {
	retriever := NewRetriever(newMockEmbedder(), newMockVectorStore())

	result, err := retriever.Retrieve(context.Background(), "query", domain.NamespaceTechnical, nil)

	require.NoError(t, err)
	assert.True(t, result.OutOfScope)
	assert.Empty(t, result.Chunks)
}

func TestRetriever_Retrieve_WeakBestHitIsOutOfScope(t *testing.T) {
	store := newMockVectorStore()
	store.queryHits[domain.NamespaceTechnical] = []domain.RetrievedChunk{
		hit("weak", 0.2, domain.NamespaceTechnical),
	}

	retriever := NewRetriever(newMockEmbedder(), store)

	result, err := retriever.Retrieve(context.Background(), "query", domain.NamespaceTechnical, nil)

	require.NoError(t, err)
	assert.True(t, result.OutOfScope, "best hit below threshold is not grounding evidence")
	// The chunks are still returned for the caller to inspect.
	require.Len(t, result.Chunks, 1)
}

func TestRetriever_Retrieve_CustomOutOfScopeThreshold(t *testing.T) {
	store := newMockVectorStore()
	store.queryHits[domain.NamespaceTechnical] = []domain.RetrievedChunk{
		hit("middling", 0.5, domain.NamespaceTechnical),
	}

	strict := NewRetriever(newMockEmbedder(), store, WithOutOfScopeThreshold(0.6))
	lenient := NewRetriever(newMockEmbedder(), store, WithOutOfScopeThreshold(0.4))

	strictResult, err := strict.Retrieve(context.Background(), "query", domain.NamespaceTechnical, nil)
	require.NoError(t, err)
	assert.True(t, strictResult.OutOfScope)

	lenientResult, err := lenient.Retrieve(context.Background(), "query", domain.NamespaceTechnical, nil)
	require.NoError(t, err)
	assert.False(t, lenientResult.OutOfScope)
}

func TestRetriever_Retrieve_RejectsUnknownNamespace(t *testing.T) {
	retriever := NewRetriever(newMockEmbedder(), newMockVectorStore())

	_, err := retriever.Retrieve(context.Background(), "query", domain.Namespace("made-up"), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetriever_Retrieve_StoreErrorPropagates(t *testing.T) {
	store := newMockVectorStore()
	store.queryErr = errors.New("store down")

	retriever := NewRetriever(newMockEmbedder(), store)

	_, err := retriever.Retrieve(context.Background(), "query", domain.NamespaceTechnical, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}
