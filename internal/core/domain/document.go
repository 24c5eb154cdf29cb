package domain

import "time"

// SourceDocument represents one logical document fetched from an upstream
// source. Readers produce it wholesale on every sync pass; the core never
// mutates it.
type SourceDocument struct {
	// SourceKey is the stable identifier of the document within its source
	// (a Drive file ID, "owner/repo/path" for a repository file, a file name
	// for generated documents).
	SourceKey string

	// Title is the human-readable document title.
	Title string

	// SourceURL is a web-openable link to the original document, if any.
	SourceURL string

	// Namespace is the topical partition this document belongs to.
	Namespace Namespace

	// ContentCategory describes the kind of content (e.g. "code",
	// "documentation", "project_writeup", "notes").
	ContentCategory string

	// Fingerprint is the change-detection signal for this document.
	// It is opaque to the core: a content hash or a source-control SHA,
	// never used for chunk identity.
	Fingerprint string

	// Text is the full raw content.
	Text string
}

// Chunk is a bounded span of a SourceDocument's text, the unit that gets
// embedded and stored. The chunker is its sole producer.
type Chunk struct {
	// ID is the deterministic content-addressed identifier, formatted as a
	// UUID so it is valid in the vector store's identifier space.
	ID string

	// SourceKey links back to the producing document.
	SourceKey string

	// DocTitle is the parent document's title, carried for display.
	DocTitle string

	// SourceURL is the parent document's web link, carried for display.
	SourceURL string

	// Namespace is inherited from the parent document.
	Namespace Namespace

	// ContentCategory is inherited from the parent document.
	ContentCategory string

	// SeqIndex is the ordinal position of this chunk within the document.
	SeqIndex int

	// TotalInDoc is the number of chunks the document produced.
	TotalInDoc int

	// Text is the chunk content.
	Text string

	// IngestedAt is when the chunk was produced.
	IngestedAt time.Time
}

// VectorRecord pairs a chunk with its embedding for upsert into the vector
// store. The stored payload is derived from the Chunk fields.
type VectorRecord struct {
	// ID is the chunk identifier, used as the vector store point ID.
	ID string

	// Vector is the embedding of the chunk text.
	Vector []float32

	// Chunk carries the payload fields.
	Chunk Chunk
}

// LedgerEntry is the persisted record of what a source document produced
// downstream. The ledger is the only authority for "what exists in the
// vector store because of this document".
type LedgerEntry struct {
	// Fingerprint is the change-detection signal recorded at ingest time.
	Fingerprint string `json:"fingerprint"`

	// ChunkIDs are the vector store point IDs the document produced.
	ChunkIDs []string `json:"chunk_ids"`
}
