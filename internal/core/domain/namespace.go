package domain

import "fmt"

// Namespace is a fixed topical partition of the knowledge base. It scopes
// both storage (every chunk is stored under exactly one namespace) and
// query-time filtering.
type Namespace string

const (
	// NamespaceTechnical holds engineering and research content.
	NamespaceTechnical Namespace = "technical"

	// NamespaceNontechnical holds personal, essay and opinion content.
	NamespaceNontechnical Namespace = "nontechnical"

	// NamespaceAmbiguous is a synthetic routing outcome, never a storage
	// namespace. It means no single namespace cleared the confidence margin
	// and retrieval should fan out across all of them.
	NamespaceAmbiguous Namespace = "ambiguous"
)

// KnownNamespaces returns the storage namespaces in their fixed iteration
// order. The order is part of the retrieval contract: ambiguous-merge ties
// are broken by it.
func KnownNamespaces() []Namespace {
	return []Namespace{NamespaceTechnical, NamespaceNontechnical}
}

// Concrete reports whether n is a storage namespace rather than the
// synthetic ambiguous outcome.
func (n Namespace) Concrete() bool {
	for _, known := range KnownNamespaces() {
		if n == known {
			return true
		}
	}
	return false
}

// ParseNamespace validates a namespace string from an external boundary
// (config file, document metadata, CLI flag). The ambiguous outcome is not
// accepted: it is produced by the router, never supplied.
func ParseNamespace(s string) (Namespace, error) {
	ns := Namespace(s)
	if !ns.Concrete() {
		return "", fmt.Errorf("%w: unknown namespace %q", ErrInvalidInput, s)
	}
	return ns, nil
}

// SourceKind identifies one of the independently-synced source families.
type SourceKind string

const (
	// SourceKindDrive is the cloud-drive folder source.
	SourceKindDrive SourceKind = "drive"

	// SourceKindGitHub is the source-code repository source.
	SourceKindGitHub SourceKind = "github"

	// SourceKindLocalDocs is the generated-document directory source.
	SourceKindLocalDocs SourceKind = "localdocs"
)

// ParseSourceKind validates a source kind string from an external boundary.
func ParseSourceKind(s string) (SourceKind, error) {
	switch kind := SourceKind(s); kind {
	case SourceKindDrive, SourceKindGitHub, SourceKindLocalDocs:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown source kind %q", ErrInvalidInput, s)
	}
}
