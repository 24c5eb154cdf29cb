package domain

// RouteDecision is the outcome of namespace classification for a query.
type RouteDecision struct {
	// Namespace is the chosen namespace, or NamespaceAmbiguous when no
	// single namespace cleared the confidence margin.
	Namespace Namespace

	// Scores holds the per-namespace similarity scores, kept for
	// diagnostics and UI transparency even when the decision is clear.
	Scores map[Namespace]float64
}

// Ambiguous reports whether the decision requires cross-namespace fan-out.
func (d RouteDecision) Ambiguous() bool {
	return d.Namespace == NamespaceAmbiguous
}

// RetrievedChunk is a scored search hit read back from the vector store.
// Its fields mirror the payload the index writer stores.
type RetrievedChunk struct {
	// Text is the chunk content.
	Text string

	// Score is the similarity score reported by the vector store.
	Score float64

	// DocTitle is the parent document's title.
	DocTitle string

	// SourceURL links to the original document.
	SourceURL string

	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int

	// Namespace the chunk was stored under.
	Namespace Namespace

	// ContentCategory of the parent document.
	ContentCategory string
}

// RetrievalResult is what the retriever hands to callers.
type RetrievalResult struct {
	// Chunks are the top-k hits, sorted by score descending.
	Chunks []RetrievedChunk

	// OutOfScope is true when there are no hits, or the best hit scored
	// below the out-of-scope threshold. It is the single signal downstream
	// consumers use to decide whether to answer at all.
	OutOfScope bool
}
