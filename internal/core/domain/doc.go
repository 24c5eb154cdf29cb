// Package domain defines the core business entities for Corpora.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDocument: One logical document fetched from an upstream source
//   - Chunk: A bounded, embeddable span of a document
//   - LedgerEntry: The persisted record of what a document produced downstream
//   - RouteDecision: The outcome of namespace classification
//   - RetrievedChunk: A scored search hit read back from the vector store
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
