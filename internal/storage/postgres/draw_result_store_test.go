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

func sampleDrawResult(pool domain.PoolType, round uint64, ts int64) *domain.DrawResult {
	r := &domain.DrawResult{
		PoolType:      pool,
		RoundNumber:   round,
		DrawTimestamp: ts,
	}
	for i := 0; i < domain.TopWinnerCount; i++ {
		r.TopWinners[i] = "Winner" + string(rune('A'+i))
		r.TopAmounts[i] = uint64(1_000 * (i + 1))
	}
	for i := range r.Seed {
		r.Seed[i] = byte(i)
	}
	return r
}

func TestDrawResultStore_InsertGetAndDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewDrawResultStore(pool)
	ctx := context.Background()

	r := sampleDrawResult(domain.PoolHourly, 3, 5_000)
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.Get(ctx, domain.PoolHourly, 3)
	require.NoError(t, err)
	assert.Equal(t, r.TopWinners, got.TopWinners)
	assert.Equal(t, r.TopAmounts, got.TopAmounts)
	assert.Equal(t, [domain.TopWinnerCount]uint64{}, got.TopClaimed)
	assert.Equal(t, r.Seed, got.Seed)
	assert.Equal(t, r.DrawTimestamp, got.DrawTimestamp)

	// Double-draw guard.
	assert.ErrorIs(t, store.Insert(ctx, r), storage.ErrDuplicateKey)

	_, err = store.Get(ctx, domain.PoolHourly, 4)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDrawResultStore_AddClaimedCap(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewDrawResultStore(pool)
	ctx := context.Background()

	r := sampleDrawResult(domain.PoolMin30, 1, 5_000)
	require.NoError(t, store.Insert(ctx, r))

	require.NoError(t, store.AddClaimed(ctx, domain.PoolMin30, 1, 0, 0, 400))
	require.NoError(t, store.AddClaimed(ctx, domain.PoolMin30, 1, 0, 400, 600)) // exactly TopAmounts[0]

	// A stale expectation means another claim advanced the counter first.
	assert.ErrorIs(t, store.AddClaimed(ctx, domain.PoolMin30, 1, 0, 400, 100), storage.ErrStaleUpdate)

	// Any further advance would exceed the award.
	assert.ErrorIs(t, store.AddClaimed(ctx, domain.PoolMin30, 1, 0, 1_000, 1), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.AddClaimed(ctx, domain.PoolMin30, 1, domain.TopWinnerCount, 0, 1), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.AddClaimed(ctx, domain.PoolMin30, 9, 0, 0, 1), storage.ErrNotFound)

	got, err := store.Get(ctx, domain.PoolMin30, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), got.TopClaimed[0])
	assert.Equal(t, uint64(0), got.TopClaimed[1])
}

func TestDrawResultStore_ListUnfinished(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewDrawResultStore(pool)
	ctx := context.Background()

	older := sampleDrawResult(domain.PoolHourly, 1, 4_000)
	newer := sampleDrawResult(domain.PoolMin30, 2, 6_000)
	require.NoError(t, store.Insert(ctx, older))
	require.NoError(t, store.Insert(ctx, newer))

	list, err := store.ListUnfinished(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.DrawTimestamp, list[0].DrawTimestamp)
	assert.Equal(t, newer.DrawTimestamp, list[1].DrawTimestamp)

	// Fully claim the older one; it drops out of the sweep.
	for slot := 0; slot < domain.TopWinnerCount; slot++ {
		require.NoError(t, store.AddClaimed(ctx, domain.PoolHourly, 1, slot, 0, older.TopAmounts[slot]))
	}
	list, err = store.ListUnfinished(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.PoolMin30, list[0].PoolType)
}
