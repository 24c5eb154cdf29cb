// Package qdrant provides a VectorStore adapter backed by the Qdrant REST
// API. Points are stored with cosine distance; payload fields carry the
// chunk metadata the retriever filters and displays on.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultCollection = "corpora"
	DefaultTimeout    = 30 * time.Second
)

// Payload field names written on every point. These are the contract
// between the index writer and the retriever.
const (
	fieldText            = "text"
	fieldDocTitle        = "doc_title"
	fieldSourceURL       = "source_url"
	fieldSourceKey       = "source_key"
	fieldNamespace       = "namespace"
	fieldContentCategory = "content_category"
	fieldChunkIndex      = "chunk_index"
	fieldChunkTotal      = "chunk_total"
	fieldIngestedAt      = "ingested_at"
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant base URL (required), e.g. "http://localhost:6333".
	URL string

	// APIKey authenticates requests. Optional for local instances.
	APIKey string

	// Collection is the collection name (default: "corpora").
	Collection string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// Store is a VectorStore backed by the Qdrant REST API.
type Store struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
}

// NewStore creates a new Qdrant store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant: URL is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
	}, nil
}

// EnsureSchema idempotently creates the collection with cosine distance and
// keyword indexes on the filter fields. Safe to call on every run.
func (s *Store) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("qdrant: %w: dimensions must be positive", domain.ErrInvalidInput)
	}

	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimensions,
				"distance": "Cosine",
			},
		}
		if err := s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		logger.Info("Created collection %s (dim=%d)", s.collection, dimensions)
	}

	// Payload indexes speed up the namespace/category filters. Qdrant
	// accepts re-creation of an existing index as a no-op at our scale,
	// so these run unconditionally.
	for _, field := range []string{fieldNamespace, fieldContentCategory} {
		body := map[string]any{
			"field_name":   field,
			"field_schema": "keyword",
		}
		if err := s.do(ctx, http.MethodPut, s.collectionPath("/index"), body, nil); err != nil {
			logger.Debug("Payload index on %s: %v", field, err)
		}
	}

	return nil
}

// Upsert writes (id, vector, payload) tuples. Existing points with the same
// ID are overwritten.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]map[string]any, len(records))
	for i, record := range records {
		points[i] = map[string]any{
			"id":     record.ID,
			"vector": record.Vector,
			"payload": map[string]any{
				fieldText:            record.Chunk.Text,
				fieldDocTitle:        record.Chunk.DocTitle,
				fieldSourceURL:       record.Chunk.SourceURL,
				fieldSourceKey:       record.Chunk.SourceKey,
				fieldNamespace:       string(record.Chunk.Namespace),
				fieldContentCategory: record.Chunk.ContentCategory,
				fieldChunkIndex:      record.Chunk.SeqIndex,
				fieldChunkTotal:      record.Chunk.TotalInDoc,
				fieldIngestedAt:      record.Chunk.IngestedAt.Format(time.RFC3339),
			},
		}
	}

	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), body, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Delete removes points by ID. No-op on empty input.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	body := map[string]any{"points": ids}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("delete %d points: %w", len(ids), err)
	}
	return nil
}

// Exists reports which of the given IDs are missing from the collection.
func (s *Store) Exists(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	body := map[string]any{
		"ids":          ids,
		"with_payload": false,
		"with_vector":  false,
	}

	var resp struct {
		Result []struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points"), body, &resp); err != nil {
		return nil, fmt.Errorf("retrieve %d points: %w", len(ids), err)
	}

	found := make(map[string]bool, len(resp.Result))
	for _, point := range resp.Result {
		found[point.ID] = true
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Query runs one filtered top-k similarity search.
func (s *Store) Query(ctx context.Context, q driven.VectorQuery) ([]domain.RetrievedChunk, error) {
	must := []map[string]any{
		{
			"key":   fieldNamespace,
			"match": map[string]any{"value": string(q.Namespace)},
		},
	}
	if len(q.Categories) > 0 {
		must = append(must, map[string]any{
			"key":   fieldContentCategory,
			"match": map[string]any{"any": q.Categories},
		})
	}

	body := map[string]any{
		"query":        q.Vector,
		"filter":       map[string]any{"must": must},
		"limit":        q.Limit,
		"with_payload": true,
	}

	var resp struct {
		Result struct {
			Points []struct {
				ID      string         `json:"id"`
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/query"), body, &resp); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(resp.Result.Points))
	for _, point := range resp.Result.Points {
		chunks = append(chunks, payloadToChunk(point.Payload, point.Score, q.Namespace))
	}
	return chunks, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// payloadToChunk maps a point payload back to a RetrievedChunk. Legacy
// field names (personality_ns, content_type) are read as fallbacks during
// the migration window; writes only use the current names.
func payloadToChunk(payload map[string]any, score float64, ns domain.Namespace) domain.RetrievedChunk {
	chunk := domain.RetrievedChunk{
		Text:            stringField(payload, fieldText, ""),
		Score:           score,
		DocTitle:        stringField(payload, fieldDocTitle, "Unknown"),
		SourceURL:       stringField(payload, fieldSourceURL, ""),
		ChunkIndex:      intField(payload, fieldChunkIndex),
		Namespace:       domain.Namespace(stringField(payload, fieldNamespace, string(ns))),
		ContentCategory: stringField(payload, fieldContentCategory, ""),
	}

	if chunk.ContentCategory == "" {
		chunk.ContentCategory = stringField(payload, "content_type", "")
	}
	if payload[fieldNamespace] == nil {
		if legacy := stringField(payload, "personality_ns", ""); legacy != "" {
			chunk.Namespace = domain.Namespace(legacy)
		}
	}

	return chunk
}

func stringField(payload map[string]any, key, fallback string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return fallback
}

func intField(payload map[string]any, key string) int {
	// JSON numbers decode as float64
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}

// collectionExists checks whether the collection is already present.
func (s *Store) collectionExists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+s.collectionPath(""), http.NoBody)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("qdrant: %w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("qdrant: get collection returned status %d: %s", resp.StatusCode, string(body))
	}
}

// do issues one JSON request and decodes the response into out when
// non-nil.
func (s *Store) do(ctx context.Context, method, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: %w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("qdrant: %w: %s", domain.ErrRateLimited, string(respBody))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("qdrant: status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (s *Store) collectionPath(suffix string) string {
	return "/collections/" + s.collection + suffix
}

func (s *Store) setHeaders(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}
