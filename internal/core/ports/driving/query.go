package driving

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// Router decides which namespace a query belongs to.
type Router interface {
	// Classify embeds the query, scores it against each namespace's
	// exemplars and applies the confidence-margin test. The returned
	// decision is either a concrete namespace or the ambiguous outcome.
	Classify(ctx context.Context, query string) (domain.RouteDecision, error)

	// Reset discards the cached exemplar vectors so the next Classify
	// rebuilds them. Testing hook; not needed in normal operation.
	Reset()
}

// Retriever answers a query from the vector store.
type Retriever interface {
	// Retrieve runs a namespace-filtered top-k search. When namespace is
	// the ambiguous outcome it fans out across all known namespaces and
	// merges. categories optionally restricts results by content category.
	Retrieve(ctx context.Context, query string, namespace domain.Namespace, categories []string) (*domain.RetrievalResult, error)
}
