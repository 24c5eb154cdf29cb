// Package drive reads documents from Google Drive folders. Each configured
// folder is tagged with a namespace and content category; Google Docs are
// exported as plain text, regular text files are downloaded directly.
// Drive's modified timestamps are deliberately ignored: the fingerprint is
// a SHA-256 of the exported text, so touched-but-unchanged documents do not
// trigger re-indexing.
package drive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

var _ driven.SourceReader = (*Reader)(nil)

// Drive MIME types.
const (
	mimeTypeGoogleDoc = "application/vnd.google-apps.document"
	mimeTypeFolder    = "application/vnd.google-apps.folder"
)

// maxDocumentSize caps downloaded content (5MB).
const maxDocumentSize = 5 * 1024 * 1024

// listFields selects the file metadata we need per page.
const listFields = "nextPageToken, files(id, name, mimeType, webViewLink, size, trashed)"

// Folder is one Drive folder to ingest with its tagging.
type Folder struct {
	ID              string
	Namespace       domain.Namespace
	ContentCategory string
}

// Config configures the Drive reader.
type Config struct {
	// CredentialsFile is the OAuth client credentials JSON.
	CredentialsFile string
	// TokenFile is the cached OAuth token from a prior consent flow.
	TokenFile string
	// Folders lists the folders to ingest.
	Folders []Folder
}

// Reader fetches Drive folder contents as source documents.
type Reader struct {
	cfg     Config
	svc     *drive.Service
	limiter *rateLimiter
}

// NewReader creates a Drive reader from cached OAuth credentials. The token
// file must already exist; the consent flow is out of scope for a sync run.
func NewReader(ctx context.Context, cfg Config) (*Reader, error) {
	for _, folder := range cfg.Folders {
		if !folder.Namespace.Concrete() {
			return nil, fmt.Errorf("%w: folder %s needs a concrete namespace", domain.ErrInvalidInput, folder.ID)
		}
	}

	ts, err := tokenSource(ctx, cfg.CredentialsFile, cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Reader{
		cfg:     cfg,
		svc:     svc,
		limiter: newRateLimiter(),
	}, nil
}

// Kind implements driven.SourceReader.
func (r *Reader) Kind() domain.SourceKind {
	return domain.SourceKindDrive
}

// ListDocuments fetches every readable document from all configured
// folders. Files that cannot be exported are logged and skipped.
func (r *Reader) ListDocuments(ctx context.Context) ([]domain.SourceDocument, error) {
	var docs []domain.SourceDocument

	for _, folder := range r.cfg.Folders {
		folderDocs, err := r.listFolder(ctx, folder)
		if err != nil {
			return docs, fmt.Errorf("folder %s: %w", folder.ID, err)
		}
		logger.Info("drive: %d documents in folder %s", len(folderDocs), folder.ID)
		docs = append(docs, folderDocs...)
	}

	return docs, nil
}

// Close implements driven.SourceReader.
func (r *Reader) Close() error {
	return nil
}

// listFolder pages through one folder and converts its files.
func (r *Reader) listFolder(ctx context.Context, folder Folder) ([]domain.SourceDocument, error) {
	var docs []domain.SourceDocument

	query := fmt.Sprintf("'%s' in parents and trashed = false", folder.ID)
	pageToken := ""

	for {
		select {
		case <-ctx.Done():
			return docs, ctx.Err()
		default:
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return docs, err
		}

		call := r.svc.Files.List().Q(query).Fields(listFields).PageSize(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return docs, r.wrapError(err, "list files")
		}

		for _, file := range page.Files {
			if file.MimeType == mimeTypeFolder || file.Trashed {
				continue
			}

			text, err := r.fetchContent(ctx, file)
			if err != nil {
				if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, context.Canceled) {
					return docs, err
				}
				logger.Warn("drive: could not read %s (%s): %v", file.Name, file.Id, err)
				continue
			}
			if strings.TrimSpace(text) == "" {
				logger.Debug("drive: skipping empty or binary file %s", file.Name)
				continue
			}

			sum := sha256.Sum256([]byte(text))
			docs = append(docs, domain.SourceDocument{
				SourceKey:       file.Id,
				Title:           file.Name,
				SourceURL:       file.WebViewLink,
				Namespace:       folder.Namespace,
				ContentCategory: folder.ContentCategory,
				Fingerprint:     hex.EncodeToString(sum[:]),
				Text:            text,
			})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return docs, nil
}

// fetchContent exports Google Docs as plain text and downloads regular
// text files. Non-text files yield an empty string.
func (r *Reader) fetchContent(ctx context.Context, file *drive.File) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var resp *http.Response
	var err error

	switch {
	case file.MimeType == mimeTypeGoogleDoc:
		resp, err = r.svc.Files.Export(file.Id, "text/plain").Context(ctx).Download()
	case strings.HasPrefix(file.MimeType, "text/") && file.Size <= maxDocumentSize:
		resp, err = r.svc.Files.Get(file.Id).Context(ctx).Download()
	default:
		return "", nil
	}
	if err != nil {
		return "", r.wrapError(err, "fetch content")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(data), nil
}

// wrapError maps Drive API errors onto the domain error taxonomy and feeds
// quota errors back into the limiter.
func (r *Reader) wrapError(err error, operation string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || (apiErr.Code == http.StatusForbidden && isQuotaError(apiErr)) {
			r.limiter.recordQuotaError()
			return fmt.Errorf("%s: %w", operation, domain.ErrRateLimited)
		}
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func isQuotaError(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		if strings.Contains(item.Reason, "ateLimit") || strings.Contains(item.Reason, "quota") {
			return true
		}
	}
	return false
}

// tokenSource builds an oauth2.TokenSource from the credentials and cached
// token files.
func tokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	credData, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(credData, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tokenData, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token (run the consent flow first): %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	return oauthCfg.TokenSource(ctx, &token), nil
}
