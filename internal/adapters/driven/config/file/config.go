// Package file loads the Corpora configuration from a TOML file.
// Configuration lives in ~/.corpora/config.toml by default; every section
// has working defaults so a minimal file only needs credentials and source
// definitions.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// Config is the full application configuration.
type Config struct {
	Verbose bool `toml:"verbose"`

	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Qdrant    QdrantConfig    `toml:"qdrant"`
	Routing   RoutingConfig   `toml:"routing"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Sync      SyncConfig      `toml:"sync"`
	Sources   SourcesConfig   `toml:"sources"`
}

// ChunkingConfig bounds the chunker.
type ChunkingConfig struct {
	// Size is the maximum chunk length in bytes.
	Size int `toml:"size"`
	// Overlap is the overlap budget between consecutive chunks in bytes.
	Overlap int `toml:"overlap"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// APIKey falls back to the OPENAI_API_KEY environment variable.
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	BatchSize int    `toml:"batch_size"`
}

// QdrantConfig configures the vector store.
type QdrantConfig struct {
	URL string `toml:"url"`
	// APIKey falls back to the QDRANT_API_KEY environment variable.
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection"`
}

// RoutingConfig configures the namespace classifier.
type RoutingConfig struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	// Exemplars optionally replaces the built-in exemplar corpus,
	// keyed by namespace.
	Exemplars map[string][]string `toml:"exemplars"`
}

// RetrievalConfig configures the retriever.
type RetrievalConfig struct {
	TopK                int     `toml:"top_k"`
	OutOfScopeThreshold float64 `toml:"out_of_scope_threshold"`
}

// LedgerConfig selects and locates the ledger backend.
type LedgerConfig struct {
	// Backend is "file" (default) or "sqlite".
	Backend string `toml:"backend"`
	// Dir overrides the storage directory.
	Dir string `toml:"dir"`
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	Workers       int  `toml:"workers"`
	Force         bool `toml:"force"`
	Verify        bool `toml:"verify"`
	RetryAttempts int  `toml:"retry_attempts"`
}

// SourcesConfig defines the upstream sources per kind.
type SourcesConfig struct {
	Drive     DriveSourceConfig     `toml:"drive"`
	GitHub    GitHubSourceConfig    `toml:"github"`
	LocalDocs LocalDocsSourceConfig `toml:"localdocs"`
}

// DriveSourceConfig defines the cloud-drive folders to ingest.
type DriveSourceConfig struct {
	// CredentialsFile is the OAuth client credentials JSON path.
	CredentialsFile string `toml:"credentials_file"`
	// TokenFile caches the OAuth token between runs.
	TokenFile string `toml:"token_file"`
	// Folders lists the folders to ingest with their tagging.
	Folders []DriveFolderConfig `toml:"folders"`
}

// DriveFolderConfig tags one Drive folder.
type DriveFolderConfig struct {
	FolderID        string `toml:"folder_id"`
	Namespace       string `toml:"namespace"`
	ContentCategory string `toml:"content_category"`
}

// GitHubSourceConfig defines the repositories to ingest.
type GitHubSourceConfig struct {
	// Token falls back to the GITHUB_TOKEN environment variable.
	Token string `toml:"token"`
	// Repos lists repositories as "owner/name".
	Repos []string `toml:"repos"`
	// AllowedExtensions restricts which files are ingested.
	AllowedExtensions []string `toml:"allowed_extensions"`
	// IgnorePatterns skips paths containing any of these substrings.
	IgnorePatterns []string `toml:"ignore_patterns"`
	// Namespace tags repository content; defaults to "technical".
	Namespace string `toml:"namespace"`
}

// LocalDocsSourceConfig defines the generated-document directory.
type LocalDocsSourceConfig struct {
	Dir string `toml:"dir"`
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".corpora", "config.toml"), nil
}

// Load reads the config file at path and applies defaults. A missing file
// yields the pure defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in zero values.
func (c *Config) applyDefaults() {
	if c.Chunking.Size == 0 {
		c.Chunking.Size = 1000
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 200
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Qdrant.URL == "" {
		c.Qdrant.URL = "http://localhost:6333"
	}
	if c.Qdrant.APIKey == "" {
		c.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "corpora"
	}
	if c.Routing.ConfidenceThreshold == 0 {
		c.Routing.ConfidenceThreshold = 0.08
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.OutOfScopeThreshold == 0 {
		c.Retrieval.OutOfScopeThreshold = 0.3
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = "file"
	}
	if c.Sync.Workers == 0 {
		c.Sync.Workers = 4
	}
	if c.Sync.RetryAttempts == 0 {
		c.Sync.RetryAttempts = 4
	}
	if c.Sources.GitHub.Token == "" {
		c.Sources.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if c.Sources.GitHub.Namespace == "" {
		c.Sources.GitHub.Namespace = string(domain.NamespaceTechnical)
	}
	if len(c.Sources.GitHub.AllowedExtensions) == 0 {
		c.Sources.GitHub.AllowedExtensions = []string{".go", ".py", ".md", ".rst", ".txt"}
	}
	if len(c.Sources.GitHub.IgnorePatterns) == 0 {
		c.Sources.GitHub.IgnorePatterns = []string{"vendor/", "node_modules/", ".git/", "testdata/"}
	}
}

// validate rejects values the rest of the system cannot work with.
func (c *Config) validate() error {
	if c.Ledger.Backend != "file" && c.Ledger.Backend != "sqlite" {
		return fmt.Errorf("%w: ledger backend %q (want \"file\" or \"sqlite\")", domain.ErrInvalidInput, c.Ledger.Backend)
	}
	for _, folder := range c.Sources.Drive.Folders {
		if _, err := domain.ParseNamespace(folder.Namespace); err != nil {
			return fmt.Errorf("drive folder %s: %w", folder.FolderID, err)
		}
	}
	if _, err := domain.ParseNamespace(c.Sources.GitHub.Namespace); err != nil && len(c.Sources.GitHub.Repos) > 0 {
		return fmt.Errorf("github source: %w", err)
	}
	for ns := range c.Routing.Exemplars {
		if _, err := domain.ParseNamespace(ns); err != nil {
			return fmt.Errorf("routing exemplars: %w", err)
		}
	}
	return nil
}

// ExemplarCorpus converts the configured exemplar override into domain
// terms. Returns nil when no override is configured.
func (c *Config) ExemplarCorpus() map[domain.Namespace][]string {
	if len(c.Routing.Exemplars) == 0 {
		return nil
	}
	corpus := make(map[domain.Namespace][]string, len(c.Routing.Exemplars))
	for ns, utterances := range c.Routing.Exemplars {
		corpus[domain.Namespace(ns)] = utterances
	}
	return corpus
}
