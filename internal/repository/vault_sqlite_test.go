package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"osrs-vault-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteVaultStore {
	t.Helper()
	store, err := NewSQLiteVaultStore(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newSnapshot(t *testing.T, accountID int64, counts model.InventoryCounts, approved bool) *model.Snapshot {
	t.Helper()
	snap, err := model.NewSnapshot(accountID, counts, approved, time.Now())
	require.NoError(t, err)
	return snap
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id1, err := store.EnsureAccount(ctx, "demo-hash", "admin")
	require.NoError(t, err)
	id2, err := store.EnsureAccount(ctx, "demo-hash", "admin")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	resolved, err := store.ResolveAccount(ctx, "demo-hash")
	require.NoError(t, err)
	assert.Equal(t, id1, resolved)

	_, err = store.ResolveAccount(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAppendSnapshotUnknownAccount(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AppendSnapshot(ctx, newSnapshot(t, 42, model.InventoryCounts{Tbow: 1}, true))
	assert.ErrorIs(t, err, ErrAccountNotFound)

	latest, err := store.LatestApproved(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestLatestApprovedSkipsUnapproved(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	acc, err := store.EnsureAccount(ctx, "a", "")
	require.NoError(t, err)

	latest, err := store.LatestApproved(ctx, &acc)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := newSnapshot(t, acc, model.InventoryCounts{Tbow: 1}, true)
	firstID, err := store.AppendSnapshot(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, firstID, first.ID)

	_, err = store.AppendSnapshot(ctx, newSnapshot(t, acc, model.InventoryCounts{Tbow: 9}, false))
	require.NoError(t, err)

	latest, err = store.LatestApproved(ctx, &acc)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, firstID, latest.ID)
	assert.Equal(t, first.PayloadHash, latest.PayloadHash)
	assert.Equal(t, first.Nonce, latest.Nonce)
	assert.True(t, latest.Approved)

	state, err := latest.State()
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Items.Tbow)
}

func TestLatestApprovedScope(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	a, err := store.EnsureAccount(ctx, "a", "")
	require.NoError(t, err)
	b, err := store.EnsureAccount(ctx, "b", "")
	require.NoError(t, err)

	aID, err := store.AppendSnapshot(ctx, newSnapshot(t, a, model.InventoryCounts{Tbow: 1}, true))
	require.NoError(t, err)
	bID, err := store.AppendSnapshot(ctx, newSnapshot(t, b, model.InventoryCounts{Staff: 2}, true))
	require.NoError(t, err)

	latestA, err := store.LatestApproved(ctx, &a)
	require.NoError(t, err)
	assert.Equal(t, aID, latestA.ID)

	latestAll, err := store.LatestApproved(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, bID, latestAll.ID)
}

func TestCounterLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	count, err := store.GetCounter(ctx, model.ItemsAcquiredKey)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = store.IncrementCounter(ctx, model.ItemsAcquiredKey, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = store.IncrementCounter(ctx, model.ItemsAcquiredKey, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	count, err = store.IncrementCounter(ctx, model.ItemsAcquiredKey, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	_, err = store.IncrementCounter(ctx, model.ItemsAcquiredKey, -1)
	assert.ErrorIs(t, err, ErrNegativeDelta)

	require.NoError(t, store.ResetCounter(ctx, model.ItemsAcquiredKey))
	count, err = store.GetCounter(ctx, model.ItemsAcquiredKey)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.ResetCounter(ctx, "never-seen"))
	count, err = store.GetCounter(ctx, "never-seen")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIncrementByZeroDoesNotCreateRow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.IncrementCounter(ctx, "k", 0)
	require.NoError(t, err)

	var rows int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vault_counters").Scan(&rows))
	assert.Zero(t, rows)
}

func TestRecordSnapshotIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	acc, err := store.EnsureAccount(ctx, "a", "")
	require.NoError(t, err)

	_, err = store.RecordSnapshot(ctx, newSnapshot(t, acc, model.InventoryCounts{Tbow: 2}, true), model.ItemsAcquiredKey, 2)
	require.NoError(t, err)

	// unknown account: neither the snapshot nor the counter move
	_, err = store.RecordSnapshot(ctx, newSnapshot(t, acc+100, model.InventoryCounts{Tbow: 5}, true), model.ItemsAcquiredKey, 3)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	count, err := store.GetCounter(ctx, model.ItemsAcquiredKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["total_snapshots"])
	assert.Equal(t, int64(1), stats["approved_snapshots"])
	assert.Equal(t, "sqlite", stats["driver"])
}
