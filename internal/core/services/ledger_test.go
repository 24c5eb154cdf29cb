package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

func TestSyncLedger_IsChanged(t *testing.T) {
	ledger := NewSyncLedger(domain.SourceKindLocalDocs, newMockLedgerStore(), false)
	require.NoError(t, ledger.Load(context.Background()))

	// Unknown key is always changed.
	assert.True(t, ledger.IsChanged("doc-1", "fp-1"))

	ledger.Record("doc-1", "fp-1", []string{"id-1"})

	assert.False(t, ledger.IsChanged("doc-1", "fp-1"))
	assert.True(t, ledger.IsChanged("doc-1", "fp-2"))
}

func TestSyncLedger_ForceAlwaysChanged(t *testing.T) {
	ledger := NewSyncLedger(domain.SourceKindLocalDocs, newMockLedgerStore(), true)
	require.NoError(t, ledger.Load(context.Background()))

	ledger.Record("doc-1", "fp-1", []string{"id-1"})

	assert.True(t, ledger.IsChanged("doc-1", "fp-1"))
	assert.True(t, ledger.Known("doc-1"), "force changes detection, not knowledge")
}

func TestSyncLedger_CorruptStoreDegradesToEmpty(t *testing.T) {
	store := newMockLedgerStore()
	store.ledgers[domain.SourceKindLocalDocs] = map[string]domain.LedgerEntry{
		"doc-1": {Fingerprint: "fp-1", ChunkIDs: []string{"id-1"}},
	}
	store.loadErr = fmt.Errorf("bad json: %w", domain.ErrLedgerCorrupt)

	ledger := NewSyncLedger(domain.SourceKindLocalDocs, store, false)
	require.NoError(t, ledger.Load(context.Background()))

	assert.Equal(t, 0, ledger.Len())
	assert.True(t, ledger.IsChanged("doc-1", "fp-1"))
}

func TestSyncLedger_LoadPropagatesOtherErrors(t *testing.T) {
	store := newMockLedgerStore()
	store.loadErr = errors.New("permission denied")

	ledger := NewSyncLedger(domain.SourceKindLocalDocs, store, false)

	err := ledger.Load(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestSyncLedger_OldChunkIDsReturnsCopy(t *testing.T) {
	ledger := NewSyncLedger(domain.SourceKindLocalDocs, newMockLedgerStore(), false)
	ledger.Record("doc-1", "fp-1", []string{"id-1", "id-2"})

	ids := ledger.OldChunkIDs("doc-1")
	require.Equal(t, []string{"id-1", "id-2"}, ids)

	ids[0] = "mutated"

	assert.Equal(t, []string{"id-1", "id-2"}, ledger.OldChunkIDs("doc-1"))
	assert.Nil(t, ledger.OldChunkIDs("unknown"))
}

func TestSyncLedger_PersistRoundTrip(t *testing.T) {
	store := newMockLedgerStore()
	ctx := context.Background()

	ledger := NewSyncLedger(domain.SourceKindGitHub, store, false)
	require.NoError(t, ledger.Load(ctx))
	ledger.Record("owner/repo/main.go", "sha-1", []string{"id-1", "id-2"})
	ledger.Record("owner/repo/util.go", "sha-2", []string{"id-3"})
	require.NoError(t, ledger.Persist(ctx))

	reloaded := NewSyncLedger(domain.SourceKindGitHub, store, false)
	require.NoError(t, reloaded.Load(ctx))

	assert.Equal(t, 2, reloaded.Len())
	assert.False(t, reloaded.IsChanged("owner/repo/main.go", "sha-1"))
	assert.Equal(t, []string{"id-3"}, reloaded.OldChunkIDs("owner/repo/util.go"))
}
