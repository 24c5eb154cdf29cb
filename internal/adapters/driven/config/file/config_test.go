package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))

	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
	assert.Equal(t, "http://localhost:6333", cfg.Qdrant.URL)
	assert.Equal(t, "corpora", cfg.Qdrant.Collection)
	assert.InDelta(t, 0.08, cfg.Routing.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.3, cfg.Retrieval.OutOfScopeThreshold, 1e-9)
	assert.Equal(t, "file", cfg.Ledger.Backend)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, "technical", cfg.Sources.GitHub.Namespace)
	assert.Contains(t, cfg.Sources.GitHub.AllowedExtensions, ".go")
	assert.Contains(t, cfg.Sources.GitHub.IgnorePatterns, "vendor/")
}

func TestLoad_ParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
verbose = true

[chunking]
size = 800
overlap = 100

[embedding]
api_key = "sk-test"
model = "text-embedding-3-large"

[qdrant]
url = "http://qdrant.internal:6333"
collection = "kb"

[retrieval]
top_k = 8

[ledger]
backend = "sqlite"

[sync]
workers = 2
force = true

[sources.github]
token = "ghp_test"
repos = ["octocat/hello-world"]

[[sources.drive.folders]]
folder_id = "folder-1"
namespace = "technical"
content_category = "documentation"

[sources.localdocs]
dir = "/tmp/docs"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, "http://qdrant.internal:6333", cfg.Qdrant.URL)
	assert.Equal(t, "kb", cfg.Qdrant.Collection)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "sqlite", cfg.Ledger.Backend)
	assert.Equal(t, 2, cfg.Sync.Workers)
	assert.True(t, cfg.Sync.Force)
	assert.Equal(t, "ghp_test", cfg.Sources.GitHub.Token)
	assert.Equal(t, []string{"octocat/hello-world"}, cfg.Sources.GitHub.Repos)
	require.Len(t, cfg.Sources.Drive.Folders, 1)
	assert.Equal(t, "folder-1", cfg.Sources.Drive.Folders[0].FolderID)
	assert.Equal(t, "/tmp/docs", cfg.Sources.LocalDocs.Dir)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "this is not toml = = =")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_RejectsUnknownLedgerBackend(t *testing.T) {
	path := writeConfig(t, `
[ledger]
backend = "redis"
`)

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_RejectsBadDriveNamespace(t *testing.T) {
	path := writeConfig(t, `
[[sources.drive.folders]]
folder_id = "folder-1"
namespace = "ambiguous"
`)

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_RejectsBadExemplarNamespace(t *testing.T) {
	path := writeConfig(t, `
[routing.exemplars]
mystery = ["an utterance"]
`)

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_EnvFallbackForAPIKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GITHUB_TOKEN", "ghp_env")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))

	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
	assert.Equal(t, "ghp_env", cfg.Sources.GitHub.Token)
}

func TestLoad_FileKeyWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := writeConfig(t, `
[embedding]
api_key = "sk-file"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.Embedding.APIKey)
}

func TestExemplarCorpus(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.ExemplarCorpus())

	cfg.Routing.Exemplars = map[string][]string{
		"technical":    {"how does the scheduler work"},
		"nontechnical": {"what did I write about travel"},
	}

	corpus := cfg.ExemplarCorpus()
	require.Len(t, corpus, 2)
	assert.Equal(t, []string{"how does the scheduler work"}, corpus[domain.NamespaceTechnical])
	assert.Equal(t, []string{"what did I write about travel"}, corpus[domain.NamespaceNontechnical])
}
