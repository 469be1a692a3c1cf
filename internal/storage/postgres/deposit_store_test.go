package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
	pgstore "tykhepot-engine/internal/storage/postgres"
)

func TestDepositStore_InsertGetAndDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewDepositStore(pool)
	ctx := context.Background()

	d := &domain.UserDeposit{
		User:         "UserWalletAAA",
		PoolType:     domain.PoolHourly,
		RoundNumber:  5,
		Amount:       200_000_000_000,
		ReserveMatch: 50_000_000_000,
		Referrer:     "ReferrerWalletBBB",
		CreatedAt:    1_700_000_000,
	}
	require.NoError(t, store.Insert(ctx, d))

	got, err := store.Get(ctx, domain.PoolHourly, 5, "UserWalletAAA")
	require.NoError(t, err)
	assert.Equal(t, d.Amount, got.Amount)
	assert.Equal(t, d.ReserveMatch, got.ReserveMatch)
	assert.Equal(t, d.Referrer, got.Referrer)
	assert.Equal(t, d.CreatedAt, got.CreatedAt)

	// Same key again is the double-deposit guard.
	err = store.Insert(ctx, d)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same user, next round is a fresh key.
	next := *d
	next.RoundNumber = 6
	require.NoError(t, store.Insert(ctx, &next))

	_, err = store.Get(ctx, domain.PoolHourly, 7, "UserWalletAAA")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDepositStore_ListByRoundOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewDepositStore(pool)
	ctx := context.Background()

	// Inserted out of order on purpose.
	records := []*domain.UserDeposit{
		{User: "UserC", PoolType: domain.PoolMin30, RoundNumber: 1, Amount: 100, CreatedAt: 2_000},
		{User: "UserA", PoolType: domain.PoolMin30, RoundNumber: 1, Amount: 100, CreatedAt: 1_000},
		{User: "UserB", PoolType: domain.PoolMin30, RoundNumber: 1, Amount: 100, CreatedAt: 1_000},
		{User: "UserD", PoolType: domain.PoolMin30, RoundNumber: 2, Amount: 100, CreatedAt: 500},
	}
	for _, d := range records {
		require.NoError(t, store.Insert(ctx, d))
	}

	list, err := store.ListByRound(ctx, domain.PoolMin30, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "UserA", list[0].User)
	assert.Equal(t, "UserB", list[1].User)
	assert.Equal(t, "UserC", list[2].User)
}

func TestDepositStore_ReferrerLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewDepositStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.UserDeposit{
		User: "UserA", PoolType: domain.PoolDaily, RoundNumber: 1,
		Amount: 100, Referrer: "RefX", CreatedAt: 1_000,
	}))
	require.NoError(t, store.Insert(ctx, &domain.UserDeposit{
		User: "UserB", PoolType: domain.PoolDaily, RoundNumber: 2,
		Amount: 100, CreatedAt: 1_000,
	}))

	pending, err := store.ListWithReferrer(ctx, domain.PoolDaily)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "UserA", pending[0].User)

	require.NoError(t, store.ClearReferrer(ctx, domain.PoolDaily, 1, "UserA"))
	// One-shot: re-clearing and clearing a missing key both lose.
	assert.ErrorIs(t, store.ClearReferrer(ctx, domain.PoolDaily, 1, "UserA"), storage.ErrNotFound)
	assert.ErrorIs(t, store.ClearReferrer(ctx, domain.PoolDaily, 9, "Nobody"), storage.ErrNotFound)

	pending, err = store.ListWithReferrer(ctx, domain.PoolDaily)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPoolStore_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewPoolStore(pool)
	ctx := context.Background()

	p := &domain.PoolState{
		PoolType:       domain.PoolDaily,
		RoundNumber:    1,
		RoundStartTime: 1_000,
		RoundEndTime:   1_000 + domain.DurationDaily,
		Vault:          "VaultAccountXYZ",
	}
	require.NoError(t, store.Create(ctx, p))
	assert.ErrorIs(t, store.Create(ctx, p), storage.ErrDuplicateKey)

	p.RoundNumber = 2
	p.TotalDeposited = 500_000_000_000
	p.RegularCount = 3
	p.Rollover = 42
	require.NoError(t, store.Update(ctx, p))

	got, err := store.Get(ctx, domain.PoolDaily)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.RoundNumber)
	assert.Equal(t, uint64(500_000_000_000), got.TotalDeposited)
	assert.Equal(t, uint32(3), got.RegularCount)
	assert.Equal(t, uint64(42), got.Rollover)
	assert.Equal(t, "VaultAccountXYZ", got.Vault)

	_, err = store.Get(ctx, domain.PoolMin30)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGrantAndFreeDepositStores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	grants := pgstore.NewGrantStore(pool)
	frees := pgstore.NewFreeDepositStore(pool)
	ctx := context.Background()

	require.NoError(t, grants.Insert(ctx, &domain.FreeBetGrant{User: "UserA", Available: true, CreatedAt: 1_000}))
	assert.ErrorIs(t, grants.Insert(ctx, &domain.FreeBetGrant{User: "UserA", Available: true, CreatedAt: 1_000}), storage.ErrDuplicateKey)

	require.NoError(t, grants.Consume(ctx, "UserA"))
	g, err := grants.Get(ctx, "UserA")
	require.NoError(t, err)
	assert.False(t, g.Available)
	assert.ErrorIs(t, grants.Consume(ctx, "UserB"), storage.ErrNotFound)

	fd := &domain.FreeDeposit{User: "UserA", PoolType: domain.PoolMin30, Amount: 100_000_000_000, ReserveMatch: 25_000_000_000, Active: true, CreatedAt: 1_000}
	require.NoError(t, frees.Insert(ctx, fd))
	assert.ErrorIs(t, frees.Insert(ctx, fd), storage.ErrDuplicateKey)

	active, err := frees.ListActive(ctx, domain.PoolMin30)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, fd.ReserveMatch, active[0].ReserveMatch)

	require.NoError(t, frees.Deactivate(ctx, domain.PoolMin30, "UserA"))
	active, err = frees.ListActive(ctx, domain.PoolMin30)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, frees.Delete(ctx, domain.PoolMin30, "UserA"))
	_, err = frees.Get(ctx, domain.PoolMin30, "UserA")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
