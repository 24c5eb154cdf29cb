// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SourceReader: Fetches documents from an upstream source
//   - EmbeddingProvider: Generates vector embeddings
//   - VectorStore: Stores and searches embedded chunks
//   - LedgerStore: Persists the per-kind sync ledger
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or reader package
package driven
