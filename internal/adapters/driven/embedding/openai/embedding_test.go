package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewProvider(Config{
		APIKey:  "sk-test",
		BaseURL: server.URL,
		Model:   "text-embedding-3-small",
	})
	require.NoError(t, err)
	return provider
}

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.Error(t, err)
}

func TestNewProvider_ModelDimensions(t *testing.T) {
	small, err := NewProvider(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, 1536, small.Dimensions())
	assert.Equal(t, "text-embedding-3-small", small.ModelName())

	large, err := NewProvider(Config{APIKey: "sk-test", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, large.Dimensions())

	custom, err := NewProvider(Config{APIKey: "sk-test", Dimensions: 256})
	require.NoError(t, err)
	assert.Equal(t, 256, custom.Dimensions())
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)

		// Entries deliberately out of order
		w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [0.3, 0.4]},
			{"index": 0, "embedding": [0.1, 0.2]}
		]}`))
	})

	vectors, err := provider.EmbedBatch(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float32{0.3, 0.4}, vectors[1])
}

func TestEmbedBatch_EmptyInputIsNoop(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	vectors, err := provider.EmbedBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedBatch_RateLimited(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	})

	_, err := provider.EmbedBatch(context.Background(), []string{"text"})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbedBatch_APIError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	})

	_, err := provider.EmbedBatch(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"index": 0, "embedding": [0.1]}]}`))
	})

	_, err := provider.EmbedBatch(context.Background(), []string{"one", "two"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 embeddings for 2 inputs")
}

func TestEmbed_SingleText(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"index": 0, "embedding": [0.5, 0.6]}]}`))
	})

	vector, err := provider.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.6}, vector)
}

func TestPing(t *testing.T) {
	var pinged bool
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		pinged = true
		assert.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"data": []}`))
	})

	require.NoError(t, provider.Ping(context.Background()))
	assert.True(t, pinged)
}
