// Package file provides a JSON-file LedgerStore. One file per source kind,
// pretty-printed so the ledger stays human-inspectable for debugging.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.LedgerStore = (*Store)(nil)

// Store is a file-based implementation of driven.LedgerStore.
type Store struct {
	dir string
}

// NewStore creates a ledger store rooted at dir. If dir is empty, defaults
// to ~/.corpora/ledgers.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".corpora", "ledgers")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Load reads the ledger for a source kind. A missing file yields an empty
// ledger; an unparsable file yields an empty ledger and an error wrapping
// domain.ErrLedgerCorrupt so the caller can degrade instead of crashing.
func (s *Store) Load(_ context.Context, kind domain.SourceKind) (map[string]domain.LedgerEntry, error) {
	data, err := os.ReadFile(s.path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]domain.LedgerEntry{}, nil
		}
		return map[string]domain.LedgerEntry{}, fmt.Errorf("%w: read %s ledger: %v", domain.ErrLedgerCorrupt, kind, err)
	}

	var entries map[string]domain.LedgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return map[string]domain.LedgerEntry{}, fmt.Errorf("%w: parse %s ledger: %v", domain.ErrLedgerCorrupt, kind, err)
	}
	if entries == nil {
		entries = map[string]domain.LedgerEntry{}
	}

	return entries, nil
}

// Save writes the ledger for a source kind. The write goes to a temp file
// first and is renamed into place, so a crash mid-write leaves the previous
// ledger intact rather than a truncated one.
func (s *Store) Save(_ context.Context, kind domain.SourceKind, entries map[string]domain.LedgerEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s ledger: %w", kind, err)
	}

	path := s.path(kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write %s ledger: %w", kind, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s ledger: %w", kind, err)
	}

	return nil
}

// path returns the ledger file path for a source kind.
func (s *Store) path(kind domain.SourceKind) string {
	return filepath.Join(s.dir, string(kind)+".json")
}
