package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_LoadEmptyLedger(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.Load(context.Background(), domain.SourceKindDrive)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	ctx := context.Background()
	in := map[string]domain.LedgerEntry{
		"owner/repo/main.go": {Fingerprint: "blob-sha-1", ChunkIDs: []string{"id-1", "id-2"}},
		"owner/repo/util.go": {Fingerprint: "blob-sha-2", ChunkIDs: []string{"id-3"}},
	}
	require.NoError(t, store.Save(ctx, domain.SourceKindGitHub, in))

	out, err := store.Load(ctx, domain.SourceKindGitHub)

	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStore_KindsAreIsolated(t *testing.T) {
	store := newTestStore(t)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.SourceKindGitHub, map[string]domain.LedgerEntry{
		"owner/repo/a.go": {Fingerprint: "fp-1", ChunkIDs: []string{"id-1"}},
	}))
	require.NoError(t, store.Save(ctx, domain.SourceKindDrive, map[string]domain.LedgerEntry{
		"drive-file": {Fingerprint: "fp-2", ChunkIDs: []string{"id-2"}},
	}))

	github, err := store.Load(ctx, domain.SourceKindGitHub)
	require.NoError(t, err)
	drive, err := store.Load(ctx, domain.SourceKindDrive)
	require.NoError(t, err)

	assert.Len(t, github, 1)
	assert.Contains(t, github, "owner/repo/a.go")
	assert.Len(t, drive, 1)
	assert.Contains(t, drive, "drive-file")
}

func TestStore_SaveReplacesKind(t *testing.T) {
	store := newTestStore(t)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.SourceKindLocalDocs, map[string]domain.LedgerEntry{
		"a.json": {Fingerprint: "fp-1", ChunkIDs: []string{"id-1"}},
		"b.json": {Fingerprint: "fp-2", ChunkIDs: []string{"id-2"}},
	}))
	require.NoError(t, store.Save(ctx, domain.SourceKindLocalDocs, map[string]domain.LedgerEntry{
		"a.json": {Fingerprint: "fp-3", ChunkIDs: []string{"id-9"}},
	}))

	entries, err := store.Load(ctx, domain.SourceKindLocalDocs)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fp-3", entries["a.json"].Fingerprint)
	assert.Equal(t, []string{"id-9"}, entries["a.json"].ChunkIDs)
}

func TestStore_CorruptChunkIDsMarksLedgerCorrupt(t *testing.T) {
	store := newTestStore(t)

	_, err := store.db.Exec(
		"INSERT INTO ledger (kind, source_key, fingerprint, chunk_ids) VALUES (?, ?, ?, ?)",
		string(domain.SourceKindDrive), "bad-row", "fp-1", "not a json array")
	require.NoError(t, err)

	entries, err := store.Load(context.Background(), domain.SourceKindDrive)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerCorrupt)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestStore_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, domain.SourceKindDrive, map[string]domain.LedgerEntry{
		"file-1": {Fingerprint: "fp-1", ChunkIDs: []string{"id-1"}},
	}))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	entries, err := second.Load(ctx, domain.SourceKindDrive)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(dir, "ledger.db"), second.Path())
}
