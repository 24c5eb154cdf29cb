// Command corpora is the knowledge-base ingestion and retrieval CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/corpora-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/corpora-cli/internal/adapters/driven/embedding/openai"
	ledgerfile "github.com/custodia-labs/corpora-cli/internal/adapters/driven/ledger/file"
	ledgersqlite "github.com/custodia-labs/corpora-cli/internal/adapters/driven/ledger/sqlite"
	"github.com/custodia-labs/corpora-cli/internal/adapters/driven/vectorstore/qdrant"
	"github.com/custodia-labs/corpora-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/corpora-cli/internal/chunker"
	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/core/services"
	"github.com/custodia-labs/corpora-cli/internal/logger"
	"github.com/custodia-labs/corpora-cli/internal/readers/drive"
	"github.com/custodia-labs/corpora-cli/internal/readers/github"
	"github.com/custodia-labs/corpora-cli/internal/readers/localdocs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	configPath, err := file.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if env := os.Getenv("CORPORA_CONFIG"); env != "" {
		configPath = env
	}

	cfg, err := file.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}

	embedder, err := openai.NewProvider(openai.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	defer embedder.Close()

	store, err := qdrant.NewStore(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	defer store.Close()

	ledgerStore, closeLedger, err := buildLedgerStore(cfg)
	if err != nil {
		return fmt.Errorf("ledger store: %w", err)
	}
	defer closeLedger()

	readers, watchable, err := buildReaders(ctx, cfg)
	if err != nil {
		return err
	}
	for _, reader := range readers {
		defer reader.Close()
	}

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	writer := services.NewIndexWriter(embedder, store,
		services.WithEmbedBatchSize(cfg.Embedding.BatchSize))

	engine := services.NewSyncEngine(readers, ledgerStore, splitter, writer,
		services.WithForceReindex(cfg.Sync.Force),
		services.WithVerifyExisting(cfg.Sync.Verify),
		services.WithWorkers(cfg.Sync.Workers),
		services.WithRetryPolicy(cfg.Sync.RetryAttempts, 500*time.Millisecond),
	)

	exemplars := cfg.ExemplarCorpus()
	if exemplars == nil {
		exemplars = services.DefaultExemplars()
	}
	classifier, err := services.NewNamespaceClassifier(embedder, exemplars,
		services.WithConfidenceThreshold(cfg.Routing.ConfidenceThreshold))
	if err != nil {
		return fmt.Errorf("namespace classifier: %w", err)
	}

	retriever := services.NewRetriever(embedder, store,
		services.WithTopK(cfg.Retrieval.TopK),
		services.WithOutOfScopeThreshold(cfg.Retrieval.OutOfScopeThreshold),
	)

	cli.SetServices(engine, classifier, retriever)
	if watchable != nil {
		cli.SetWatchReader(watchable)
	}

	return cli.Execute()
}

// buildLedgerStore creates the configured ledger backend.
func buildLedgerStore(cfg *file.Config) (driven.LedgerStore, func(), error) {
	switch cfg.Ledger.Backend {
	case "sqlite":
		store, err := ledgersqlite.NewStore(cfg.Ledger.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		store, err := ledgerfile.NewStore(cfg.Ledger.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// buildReaders creates a reader per configured source. Sources without
// configuration are simply absent; sync only runs the kinds it has.
func buildReaders(ctx context.Context, cfg *file.Config) ([]driven.SourceReader, driven.WatchableReader, error) {
	var readers []driven.SourceReader
	var watchable driven.WatchableReader

	if len(cfg.Sources.Drive.Folders) > 0 {
		folders := make([]drive.Folder, 0, len(cfg.Sources.Drive.Folders))
		for _, f := range cfg.Sources.Drive.Folders {
			folders = append(folders, drive.Folder{
				ID:              f.FolderID,
				Namespace:       domain.Namespace(f.Namespace),
				ContentCategory: f.ContentCategory,
			})
		}
		reader, err := drive.NewReader(ctx, drive.Config{
			CredentialsFile: cfg.Sources.Drive.CredentialsFile,
			TokenFile:       cfg.Sources.Drive.TokenFile,
			Folders:         folders,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("drive reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if len(cfg.Sources.GitHub.Repos) > 0 {
		reader, err := github.NewReader(ctx, github.Config{
			Token:             cfg.Sources.GitHub.Token,
			Repos:             cfg.Sources.GitHub.Repos,
			AllowedExtensions: cfg.Sources.GitHub.AllowedExtensions,
			IgnorePatterns:    cfg.Sources.GitHub.IgnorePatterns,
			Namespace:         domain.Namespace(cfg.Sources.GitHub.Namespace),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("github reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if cfg.Sources.LocalDocs.Dir != "" {
		reader, err := localdocs.NewReader(cfg.Sources.LocalDocs.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("localdocs reader: %w", err)
		}
		readers = append(readers, reader)
		watchable = reader
	}

	return readers, watchable, nil
}
