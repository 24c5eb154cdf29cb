package driven

import "github.com/custodia-labs/corpora-cli/internal/core/domain"

// Chunker splits a source document into bounded, overlapping chunks with
// their deterministic identifiers and metadata attached. A document with
// no usable text returns an error wrapping domain.ErrEmptyDocument.
type Chunker interface {
	Chunk(doc domain.SourceDocument) ([]domain.Chunk, error)
}
