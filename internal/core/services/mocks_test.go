package services

import (
	"context"
	stdsync "sync"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// --- Shared mock implementations for service tests ---

// mockReader implements driven.SourceReader. The first failures calls to
// ListDocuments return failErr, then docs are returned. Retry tests set a
// finite failure count; permanent-error tests set a large one.
type mockReader struct {
	kind     domain.SourceKind
	docs     []domain.SourceDocument
	failures int
	failErr  error

	mu        stdsync.Mutex
	listCalls int
	closed    bool
}

func (m *mockReader) Kind() domain.SourceKind { return m.kind }

func (m *mockReader) ListDocuments(_ context.Context) ([]domain.SourceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.failures > 0 {
		m.failures--
		return nil, m.failErr
	}
	return m.docs, nil
}

func (m *mockReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// mockEmbedder implements driven.EmbeddingProvider. Vectors can be pinned
// per text; everything else gets the default vector. The first batchFailures
// EmbedBatch calls fail with embedErr.
type mockEmbedder struct {
	vectors       map[string][]float32
	defaultVec    []float32
	embedErr      error
	batchFailures int

	mu         stdsync.Mutex
	embedCalls int
	batchCalls int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:    make(map[string][]float32),
		defaultVec: []float32{0.1, 0.2, 0.3},
	}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return m.defaultVec
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchFailures > 0 {
		m.batchFailures--
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int   { return 3 }
func (m *mockEmbedder) ModelName() string { return "mock-embedder" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockVectorStore implements driven.VectorStore with in-memory state.
type mockVectorStore struct {
	mu      stdsync.Mutex
	records map[string]domain.VectorRecord

	// queryHits maps namespace to canned query results.
	queryHits map[domain.Namespace][]domain.RetrievedChunk

	schemaCalls int
	// upsertFailures makes the first N Upsert calls fail with upsertErr.
	upsertFailures int
	upsertErr      error
	deleteErr      error
	queryErr       error
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{
		records:   make(map[string]domain.VectorRecord),
		queryHits: make(map[domain.Namespace][]domain.RetrievedChunk),
	}
}

func (m *mockVectorStore) EnsureSchema(_ context.Context, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaCalls++
	return nil
}

func (m *mockVectorStore) Upsert(_ context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertFailures > 0 {
		m.upsertFailures--
		return m.upsertErr
	}
	for _, record := range records {
		m.records[record.ID] = record
	}
	return nil
}

func (m *mockVectorStore) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *mockVectorStore) Exists(_ context.Context, ids []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var missing []string
	for _, id := range ids {
		if _, ok := m.records[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (m *mockVectorStore) Query(_ context.Context, q driven.VectorQuery) ([]domain.RetrievedChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	hits := m.queryHits[q.Namespace]
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func (m *mockVectorStore) Close() error { return nil }

func (m *mockVectorStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockVectorStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

// mockLedgerStore implements driven.LedgerStore in memory.
type mockLedgerStore struct {
	mu      stdsync.Mutex
	ledgers map[domain.SourceKind]map[string]domain.LedgerEntry

	loadErr   error
	saveErr   error
	saveCalls int
}

func newMockLedgerStore() *mockLedgerStore {
	return &mockLedgerStore{
		ledgers: make(map[domain.SourceKind]map[string]domain.LedgerEntry),
	}
}

func (m *mockLedgerStore) Load(_ context.Context, kind domain.SourceKind) (map[string]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return make(map[string]domain.LedgerEntry), m.loadErr
	}
	entries := make(map[string]domain.LedgerEntry, len(m.ledgers[kind]))
	for k, v := range m.ledgers[kind] {
		entries[k] = v
	}
	return entries, nil
}

func (m *mockLedgerStore) Save(_ context.Context, kind domain.SourceKind, entries map[string]domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	snapshot := make(map[string]domain.LedgerEntry, len(entries))
	for k, v := range entries {
		snapshot[k] = v
	}
	m.ledgers[kind] = snapshot
	return nil
}

func (m *mockLedgerStore) entry(kind domain.SourceKind, key string) (domain.LedgerEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.ledgers[kind][key]
	return entry, ok
}
