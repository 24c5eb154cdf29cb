// Package sqlite provides a SQLite-backed LedgerStore for installations
// whose ledgers outgrow a flat JSON document. The stored shape is the same
// mapping of source key to {fingerprint, chunk IDs}; chunk IDs are kept as
// a JSON array column so the table stays inspectable with a SQLite shell.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.LedgerStore = (*Store)(nil)

// schema creates the ledger table. Applied on every open; IF NOT EXISTS
// keeps it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS ledger (
	kind        TEXT NOT NULL,
	source_key  TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	chunk_ids   TEXT NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	PRIMARY KEY (kind, source_key)
);
`

// Store is a SQLite-based implementation of driven.LedgerStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite ledger store at the specified data directory.
// If dataDir is empty, defaults to ~/.corpora/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".corpora", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ledger.db")

	// WAL mode for better concurrency between readers and the single writer
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full ledger for a source kind. A row whose chunk_ids
// column fails to parse marks the whole kind corrupt, matching the
// file store's degradation contract.
func (s *Store) Load(ctx context.Context, kind domain.SourceKind) (map[string]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source_key, fingerprint, chunk_ids FROM ledger WHERE kind = ?", string(kind))
	if err != nil {
		return map[string]domain.LedgerEntry{}, fmt.Errorf("%w: query %s ledger: %v", domain.ErrLedgerCorrupt, kind, err)
	}
	defer rows.Close()

	entries := make(map[string]domain.LedgerEntry)
	for rows.Next() {
		var sourceKey, fingerprint, chunkIDsJSON string
		if err := rows.Scan(&sourceKey, &fingerprint, &chunkIDsJSON); err != nil {
			return map[string]domain.LedgerEntry{}, fmt.Errorf("%w: scan %s ledger: %v", domain.ErrLedgerCorrupt, kind, err)
		}

		var chunkIDs []string
		if err := json.Unmarshal([]byte(chunkIDsJSON), &chunkIDs); err != nil {
			return map[string]domain.LedgerEntry{}, fmt.Errorf("%w: parse chunk_ids for %s: %v", domain.ErrLedgerCorrupt, sourceKey, err)
		}

		entries[sourceKey] = domain.LedgerEntry{
			Fingerprint: fingerprint,
			ChunkIDs:    chunkIDs,
		}
	}
	if err := rows.Err(); err != nil {
		return map[string]domain.LedgerEntry{}, fmt.Errorf("%w: iterate %s ledger: %v", domain.ErrLedgerCorrupt, kind, err)
	}

	return entries, nil
}

// Save replaces the full ledger for a source kind in one transaction.
func (s *Store) Save(ctx context.Context, kind domain.SourceKind, entries map[string]domain.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM ledger WHERE kind = ?", string(kind)); err != nil {
		return fmt.Errorf("clear %s ledger: %w", kind, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO ledger (kind, source_key, fingerprint, chunk_ids) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for sourceKey, entry := range entries {
		chunkIDsJSON, err := json.Marshal(entry.ChunkIDs)
		if err != nil {
			return fmt.Errorf("marshal chunk_ids for %s: %w", sourceKey, err)
		}
		if _, err := stmt.ExecContext(ctx, string(kind), sourceKey, entry.Fingerprint, string(chunkIDsJSON)); err != nil {
			return fmt.Errorf("insert %s: %w", sourceKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s ledger: %w", kind, err)
	}
	return nil
}
