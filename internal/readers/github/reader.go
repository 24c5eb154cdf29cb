// Package github reads source files from GitHub repositories. It lists each
// repository tree recursively, filters by extension allowlist and ignore
// patterns, and fetches eligible blobs. The git blob SHA doubles as the
// document fingerprint, so unchanged files are skipped downstream without
// re-reading their content.
package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

var _ driven.SourceReader = (*Reader)(nil)

// maxBlobSize caps fetched file size (1MB); larger blobs are skipped.
const maxBlobSize = 1024 * 1024

// Config configures the repository reader.
type Config struct {
	// Token is a personal access token or OAuth access token.
	Token string
	// Repos lists repositories as "owner/name".
	Repos []string
	// AllowedExtensions restricts which files are ingested (e.g. ".go").
	AllowedExtensions []string
	// IgnorePatterns skips paths containing any of these substrings.
	IgnorePatterns []string
	// Namespace tags every document from this reader.
	Namespace domain.Namespace
}

// Reader fetches repository files as source documents.
type Reader struct {
	cfg     Config
	client  *gh.Client
	limiter *rateLimiter
	allowed map[string]bool
}

// NewReader creates a GitHub reader. A context is needed up front because
// the oauth2 transport binds to it.
func NewReader(ctx context.Context, cfg Config) (*Reader, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: github token is required", domain.ErrInvalidInput)
	}
	if !cfg.Namespace.Concrete() {
		return nil, fmt.Errorf("%w: github reader needs a concrete namespace", domain.ErrInvalidInput)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)

	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	return &Reader{
		cfg:     cfg,
		client:  gh.NewClient(tc),
		limiter: newRateLimiter(),
		allowed: allowed,
	}, nil
}

// Kind implements driven.SourceReader.
func (r *Reader) Kind() domain.SourceKind {
	return domain.SourceKindGitHub
}

// ListDocuments fetches every eligible file across all configured
// repositories. A repository that cannot be read is logged and skipped so
// one bad repo does not block the rest.
func (r *Reader) ListDocuments(ctx context.Context) ([]domain.SourceDocument, error) {
	var docs []domain.SourceDocument

	for _, repoName := range r.cfg.Repos {
		select {
		case <-ctx.Done():
			return docs, ctx.Err()
		default:
		}

		repoDocs, err := r.listRepo(ctx, repoName)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, context.Canceled) {
				return docs, err
			}
			logger.Warn("github: skipping repo %s: %v", repoName, err)
			continue
		}
		logger.Info("github: %d eligible files in %s", len(repoDocs), repoName)
		docs = append(docs, repoDocs...)
	}

	return docs, nil
}

// Close implements driven.SourceReader.
func (r *Reader) Close() error {
	return nil
}

// listRepo fetches the eligible files of one repository.
func (r *Reader) listRepo(ctx context.Context, repoName string) ([]domain.SourceDocument, error) {
	owner, name, err := splitRepoName(repoName)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	repo, resp, err := r.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, r.wrapError(err, "get repo")
	}
	r.updateLimiter(resp)

	branch := repo.GetDefaultBranch()

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tree, resp, err := r.client.Git.GetTree(ctx, owner, name, branch, true)
	if err != nil {
		return nil, r.wrapError(err, "get tree")
	}
	r.updateLimiter(resp)

	docs := make([]domain.SourceDocument, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		filePath := entry.GetPath()
		if !r.eligible(filePath, entry.GetSize()) {
			continue
		}

		text, err := r.fetchBlob(ctx, owner, name, entry.GetSHA())
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, context.Canceled) {
				return docs, err
			}
			logger.Warn("github: could not read %s/%s: %v", repoName, filePath, err)
			continue
		}

		docs = append(docs, domain.SourceDocument{
			SourceKey:       fmt.Sprintf("%s/%s", repoName, filePath),
			Title:           path.Base(filePath),
			SourceURL:       fmt.Sprintf("https://github.com/%s/blob/%s/%s", repoName, branch, filePath),
			Namespace:       r.cfg.Namespace,
			ContentCategory: categoryForPath(filePath),
			Fingerprint:     entry.GetSHA(),
			Text:            text,
		})
	}

	return docs, nil
}

// fetchBlob retrieves and decodes one blob by SHA.
func (r *Reader) fetchBlob(ctx context.Context, owner, repo, sha string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	blob, resp, err := r.client.Git.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		return "", r.wrapError(err, "get blob")
	}
	r.updateLimiter(resp)

	if blob.GetEncoding() == "base64" {
		raw := strings.ReplaceAll(blob.GetContent(), "\n", "")
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return "", fmt.Errorf("decode blob: %w", err)
		}
		return string(decoded), nil
	}
	return blob.GetContent(), nil
}

// eligible applies the extension allowlist, ignore patterns and size cap.
func (r *Reader) eligible(filePath string, size int) bool {
	for _, pattern := range r.cfg.IgnorePatterns {
		if strings.Contains(filePath, pattern) {
			return false
		}
	}
	if size > maxBlobSize {
		return false
	}
	if len(r.allowed) == 0 {
		return true
	}
	return r.allowed[strings.ToLower(path.Ext(filePath))]
}

func (r *Reader) updateLimiter(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	r.limiter.update(resp.Response)
}

// wrapError maps go-github errors onto the domain error taxonomy so the
// sync engine can decide what to retry.
func (r *Reader) wrapError(err error, operation string) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%s: %w", operation, domain.ErrRateLimited)
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%s: %w", operation, domain.ErrRateLimited)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// documentationExtensions marks prose file types; everything else on the
// allowlist counts as code.
var documentationExtensions = map[string]bool{
	".md": true, ".markdown": true, ".rst": true, ".txt": true,
}

func categoryForPath(filePath string) string {
	if documentationExtensions[strings.ToLower(path.Ext(filePath))] {
		return "documentation"
	}
	return "code"
}

func splitRepoName(repoName string) (owner, name string, err error) {
	parts := strings.SplitN(repoName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: repo %q (want \"owner/name\")", domain.ErrInvalidInput, repoName)
	}
	return parts[0], parts[1], nil
}
