package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"osrs-vault-api/internal/model"
	"osrs-vault-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "s3cret"

func newTestVault(t *testing.T, config VaultConfig) (*VaultService, repository.VaultStore) {
	t.Helper()
	store, err := repository.NewSQLiteVaultStore(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if config.AccountHash == "" {
		config.AccountHash = "demo-hash"
	}
	_, err = store.EnsureAccount(context.Background(), config.AccountHash, "admin")
	require.NoError(t, err)

	return NewVaultService(store, NewAuthorizer(testToken), config), store
}

func counter(t *testing.T, store repository.VaultStore) int64 {
	t.Helper()
	n, err := store.GetCounter(context.Background(), model.ItemsAcquiredKey)
	require.NoError(t, err)
	return n
}

// failingStore fails every call the vault service makes.
type failingStore struct {
	repository.VaultStore
	recordCalls int
}

var errStoreDown = errors.New("store unreachable")

func (f *failingStore) ResolveAccount(ctx context.Context, hash string) (int64, error) {
	return 1, nil
}

func (f *failingStore) LatestApproved(ctx context.Context, accountID *int64) (*model.Snapshot, error) {
	return nil, errStoreDown
}

func (f *failingStore) RecordSnapshot(ctx context.Context, snap *model.Snapshot, key string, delta int64) (int64, error) {
	f.recordCalls++
	return 0, errStoreDown
}

func (f *failingStore) GetCounter(ctx context.Context, key string) (int64, error) {
	return 0, errStoreDown
}

func TestGetStateDefaultsWhenEmpty(t *testing.T) {
	svc, _ := newTestVault(t, VaultConfig{AutoApprove: true})

	state := svc.GetState(context.Background())
	assert.Equal(t, model.DefaultVaultState(), state)
}

func TestGetStateDegradesOnStoreError(t *testing.T) {
	svc := NewVaultService(&failingStore{}, NewAuthorizer(testToken), VaultConfig{})

	state := svc.GetState(context.Background())
	assert.Equal(t, model.DefaultVaultState(), state)
}

func TestSetStateAuthorization(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestVault(t, VaultConfig{AutoApprove: true})
	body := []byte(`{"items":{"tbow":3}}`)

	_, err := svc.SetState(ctx, "wrong", body)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.SetState(ctx, "", body)
	assert.ErrorIs(t, err, ErrUnauthorized)

	unconfigured := NewVaultService(store, NewAuthorizer("  "), VaultConfig{AutoApprove: true})
	_, err = unconfigured.SetState(ctx, testToken, body)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, unconfigured.Authorize(testToken), ErrNotConfigured)

	assert.NoError(t, svc.Authorize(testToken))
	assert.ErrorIs(t, svc.Authorize("wrong"), ErrUnauthorized)
	assert.ErrorIs(t, svc.ResetCounter(ctx, "wrong"), ErrUnauthorized)

	// nothing was written
	assert.Equal(t, model.DefaultVaultState(), svc.GetState(ctx))
	assert.Zero(t, counter(t, store))
}

func TestSetStateInvalidInput(t *testing.T) {
	svc, store := newTestVault(t, VaultConfig{AutoApprove: true})

	_, err := svc.SetState(context.Background(), testToken, []byte(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SetState(context.Background(), testToken, []byte(`[1,2,3]`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Zero(t, counter(t, store))
}

func TestSetStateCountsIncreases(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestVault(t, VaultConfig{AutoApprove: true})

	res, err := svc.SetState(ctx, " "+testToken+" ", []byte(`{"items":{"tbow":2,"scythe":1,"staff":0}}`))
	require.NoError(t, err)
	assert.Positive(t, res.SnapshotID)
	assert.Equal(t, int64(3), res.TotalIncrease)
	assert.Equal(t, int64(3), counter(t, store))

	// same counts again: new snapshot, no increase
	again, err := svc.SetState(ctx, testToken, []byte(`{"items":{"tbow":2,"scythe":1,"staff":0}}`))
	require.NoError(t, err)
	assert.Greater(t, again.SnapshotID, res.SnapshotID)
	assert.Zero(t, again.TotalIncrease)
	assert.Equal(t, int64(3), counter(t, store))

	// decreases never decrement, increases still count
	mixed, err := svc.SetState(ctx, testToken, []byte(`{"tbow":0,"scythe":1,"staff":4}`))
	require.NoError(t, err)
	assert.Equal(t, int64(4), mixed.TotalIncrease)
	assert.Equal(t, int64(7), counter(t, store))

	state := svc.GetState(ctx)
	assert.Equal(t, model.InventoryCounts{Tbow: 0, Scythe: 1, Staff: 4}, state.Items)
	require.NotNil(t, state.UpdatedAt)

	require.NoError(t, svc.ResetCounter(ctx, testToken))
	assert.Zero(t, counter(t, store))
}

func TestSetStateNormalizesCounts(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestVault(t, VaultConfig{AutoApprove: true})

	_, err := svc.SetState(ctx, testToken, []byte(`{"items":{"tbow":-5,"scythe":"x","staff":3.7}}`))
	require.NoError(t, err)

	assert.Equal(t, model.InventoryCounts{Staff: 3}, svc.GetState(ctx).Items)
	assert.Equal(t, int64(3), counter(t, store))
}

func TestSetStateUnapprovedDoesNotCount(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestVault(t, VaultConfig{AutoApprove: false})

	res, err := svc.SetState(ctx, testToken, []byte(`{"items":{"tbow":2}}`))
	require.NoError(t, err)
	assert.Positive(t, res.SnapshotID)
	assert.Zero(t, res.TotalIncrease)

	assert.Equal(t, model.DefaultVaultState(), svc.GetState(ctx))
	assert.Zero(t, counter(t, store))
}

// brokenWriteStore reads from a real store but cannot write snapshots.
type brokenWriteStore struct {
	repository.VaultStore
}

func (b *brokenWriteStore) RecordSnapshot(ctx context.Context, snap *model.Snapshot, key string, delta int64) (int64, error) {
	return 0, errStoreDown
}

func TestSetStateWriteFailureLeavesCounter(t *testing.T) {
	ctx := context.Background()
	_, store := newTestVault(t, VaultConfig{AutoApprove: true})
	svc := NewVaultService(&brokenWriteStore{store}, NewAuthorizer(testToken), VaultConfig{AutoApprove: true})

	_, err := svc.SetState(ctx, testToken, []byte(`{"items":{"tbow":1}}`))
	assert.ErrorIs(t, err, ErrWrite)
	assert.Zero(t, counter(t, store))
	assert.Equal(t, model.DefaultVaultState(), svc.GetState(ctx))
}

func TestSetStateReadFailureIsWriteError(t *testing.T) {
	store := &failingStore{}
	svc := NewVaultService(store, NewAuthorizer(testToken), VaultConfig{AutoApprove: true})

	_, err := svc.SetState(context.Background(), testToken, []byte(`{"items":{"tbow":1}}`))
	assert.ErrorIs(t, err, ErrWrite)
	assert.Zero(t, store.recordCalls)
}

func TestSetStateMissingAccount(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestVault(t, VaultConfig{AutoApprove: true})

	other := NewVaultService(store, NewAuthorizer(testToken), VaultConfig{AccountHash: "nobody", AutoApprove: true})
	_, err := other.SetState(ctx, testToken, []byte(`{"items":{"tbow":1}}`))
	assert.ErrorIs(t, err, ErrWrite)

	assert.Zero(t, counter(t, store))
	assert.Equal(t, model.DefaultVaultState(), svc.GetState(ctx))
}

func TestGlobalScopeReadsAnyAccount(t *testing.T) {
	ctx := context.Background()
	admin, store := newTestVault(t, VaultConfig{AutoApprove: true})

	_, err := store.EnsureAccount(ctx, "second", "")
	require.NoError(t, err)
	second := NewVaultService(store, NewAuthorizer(testToken), VaultConfig{AccountHash: "second", AutoApprove: true})

	_, err = admin.SetState(ctx, testToken, []byte(`{"items":{"tbow":1}}`))
	require.NoError(t, err)
	_, err = second.SetState(ctx, testToken, []byte(`{"items":{"staff":2}}`))
	require.NoError(t, err)

	assert.Equal(t, model.InventoryCounts{Tbow: 1}, admin.GetState(ctx).Items)

	global := NewVaultService(store, NewAuthorizer(testToken), VaultConfig{Scope: ScopeGlobal})
	assert.Equal(t, model.InventoryCounts{Staff: 2}, global.GetState(ctx).Items)
}

func TestConcurrentIdenticalWritesCountOnce(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestVault(t, VaultConfig{AutoApprove: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SetState(ctx, testToken, []byte(`{"items":{"tbow":5}}`))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), counter(t, store))
}

func TestAuthorizer(t *testing.T) {
	auth := NewAuthorizer(" token ")
	assert.True(t, auth.Configured())
	assert.NoError(t, auth.Authorize("token"))
	assert.NoError(t, auth.Authorize("token\n"))
	assert.ErrorIs(t, auth.Authorize("Token"), ErrUnauthorized)
	assert.ErrorIs(t, auth.Authorize("tok"), ErrUnauthorized)

	assert.ErrorIs(t, NewAuthorizer("").Authorize("anything"), ErrNotConfigured)
}
