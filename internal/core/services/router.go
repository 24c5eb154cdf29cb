package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// Ensure NamespaceClassifier implements the interface.
var _ driving.Router = (*NamespaceClassifier)(nil)

// DefaultConfidenceThreshold is the minimum margin between the best and
// second-best namespace score for a decision to be trusted. A smaller
// margin produces the ambiguous outcome instead.
const DefaultConfidenceThreshold = 0.08

// NamespaceClassifier routes a query to a namespace by nearest-neighbour
// cosine similarity against a fixed set of per-namespace exemplar
// utterances.
//
// The exemplar vectors are embedded once, on first use, and cached for the
// process lifetime; concurrent queries share the cache behind a read lock.
// Reset discards the cache for tests.
type NamespaceClassifier struct {
	embedder  driven.EmbeddingProvider
	exemplars map[domain.Namespace][]string
	threshold float64

	mu    sync.RWMutex
	vecs  map[domain.Namespace][][]float32
	built bool
}

// ClassifierOption configures the classifier.
type ClassifierOption func(*NamespaceClassifier)

// WithConfidenceThreshold overrides the margin threshold.
func WithConfidenceThreshold(t float64) ClassifierOption {
	return func(c *NamespaceClassifier) {
		if t > 0 {
			c.threshold = t
		}
	}
}

// NewNamespaceClassifier creates a classifier over the given exemplar
// corpus. Every known namespace must have at least one exemplar.
func NewNamespaceClassifier(
	embedder driven.EmbeddingProvider,
	exemplars map[domain.Namespace][]string,
	opts ...ClassifierOption,
) (*NamespaceClassifier, error) {
	for _, ns := range domain.KnownNamespaces() {
		if len(exemplars[ns]) == 0 {
			return nil, fmt.Errorf("%w: namespace %q has no exemplars", domain.ErrInvalidInput, ns)
		}
	}

	c := &NamespaceClassifier{
		embedder:  embedder,
		exemplars: exemplars,
		threshold: DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify embeds the query and applies the nearest-neighbour margin test.
//
// Per namespace the score is the maximum cosine similarity over that
// namespace's exemplars - deliberately not a centroid average, so outlier
// exemplars cannot drag down an otherwise strong match and heterogeneous
// exemplar sets are not penalised for variance.
func (c *NamespaceClassifier) Classify(ctx context.Context, query string) (domain.RouteDecision, error) {
	vecs, err := c.exemplarVectors(ctx)
	if err != nil {
		return domain.RouteDecision{}, err
	}

	queryVec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return domain.RouteDecision{}, fmt.Errorf("embed query: %w", err)
	}

	scores := make(map[domain.Namespace]float64, len(vecs))
	for ns, exemplarVecs := range vecs {
		best := math.Inf(-1)
		for _, v := range exemplarVecs {
			if s := cosineSimilarity(queryVec, v); s > best {
				best = s
			}
		}
		scores[ns] = best
	}

	ranked := make([]domain.Namespace, 0, len(scores))
	for ns := range scores {
		ranked = append(ranked, ns)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	decision := domain.RouteDecision{Namespace: ranked[0], Scores: scores}
	if len(ranked) > 1 {
		margin := scores[ranked[0]] - scores[ranked[1]]
		if margin < c.threshold {
			decision.Namespace = domain.NamespaceAmbiguous
		}
		logger.Debug("Route %q: best=%s margin=%.4f decision=%s", query, ranked[0], margin, decision.Namespace)
	}

	return decision, nil
}

// Reset discards the cached exemplar vectors. Testing hook.
func (c *NamespaceClassifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vecs = nil
	c.built = false
}

// exemplarVectors returns the cached exemplar embeddings, building them on
// first use. The build is guarded so concurrent first queries embed the
// corpus exactly once.
func (c *NamespaceClassifier) exemplarVectors(ctx context.Context) (map[domain.Namespace][][]float32, error) {
	c.mu.RLock()
	if c.built {
		vecs := c.vecs
		c.mu.RUnlock()
		return vecs, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return c.vecs, nil
	}

	logger.Debug("Building exemplar vectors for %d namespaces", len(c.exemplars))
	vecs := make(map[domain.Namespace][][]float32, len(c.exemplars))
	for ns, utterances := range c.exemplars {
		embedded, err := c.embedder.EmbedBatch(ctx, utterances)
		if err != nil {
			return nil, fmt.Errorf("embed exemplars for %s: %w", ns, err)
		}
		vecs[ns] = embedded
	}

	c.vecs = vecs
	c.built = true
	return vecs, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// A tiny epsilon in the denominator guards against zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-9)
}
