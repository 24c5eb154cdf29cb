// Package localdocs reads generated documents from a local JSON directory.
// Each *.json file carries one document with its own namespace and category
// tagging. Invalid files are skipped with a warning rather than failing the
// whole listing, so partial ingestion keeps working while a bad file is
// fixed.
package localdocs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

var _ driven.WatchableReader = (*Reader)(nil)

// document is the on-disk JSON shape.
type document struct {
	DocTitle        string `json:"doc_title"`
	SourceURL       string `json:"source_url"`
	Namespace       string `json:"namespace"`
	ContentCategory string `json:"content_category"`
	Body            string `json:"body"`
}

// Reader lists generated documents from a directory.
type Reader struct {
	dir string
}

// NewReader creates a localdocs reader rooted at dir.
func NewReader(dir string) (*Reader, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: localdocs directory is required", domain.ErrInvalidInput)
	}
	return &Reader{dir: dir}, nil
}

// Kind implements driven.SourceReader.
func (r *Reader) Kind() domain.SourceKind {
	return domain.SourceKindLocalDocs
}

// ListDocuments reads every *.json file in the directory. Files are
// returned in name order so repeated listings are deterministic. A missing
// directory yields an empty listing, not an error.
func (r *Reader) ListDocuments(ctx context.Context) ([]domain.SourceDocument, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("localdocs: directory %s does not exist", r.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read localdocs dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]domain.SourceDocument, 0, len(names))
	for _, name := range names {
		select {
		case <-ctx.Done():
			return docs, ctx.Err()
		default:
		}

		doc, err := r.loadFile(name)
		if err != nil {
			logger.Warn("localdocs: skipping %s: %v", name, err)
			continue
		}
		docs = append(docs, doc)
	}

	logger.Info("localdocs: %d valid documents in %s", len(docs), r.dir)
	return docs, nil
}

// Close implements driven.SourceReader.
func (r *Reader) Close() error {
	return nil
}

// loadFile parses and validates one document file.
func (r *Reader) loadFile(name string) (domain.SourceDocument, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return domain.SourceDocument{}, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.SourceDocument{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var missing []string
	if doc.DocTitle == "" {
		missing = append(missing, "doc_title")
	}
	if doc.Namespace == "" {
		missing = append(missing, "namespace")
	}
	if doc.ContentCategory == "" {
		missing = append(missing, "content_category")
	}
	body := strings.TrimSpace(doc.Body)
	if body == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return domain.SourceDocument{}, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}

	ns, err := domain.ParseNamespace(doc.Namespace)
	if err != nil {
		return domain.SourceDocument{}, err
	}
	if !ns.Concrete() {
		return domain.SourceDocument{}, fmt.Errorf("%w: namespace %q is not concrete", domain.ErrInvalidInput, doc.Namespace)
	}

	sum := sha256.Sum256([]byte(body))

	return domain.SourceDocument{
		SourceKey:       name,
		Title:           doc.DocTitle,
		SourceURL:       doc.SourceURL,
		Namespace:       ns,
		ContentCategory: doc.ContentCategory,
		Fingerprint:     hex.EncodeToString(sum[:]),
		Text:            body,
	}, nil
}
