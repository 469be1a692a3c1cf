package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgstore "tykhepot-engine/internal/storage/postgres"
	"tykhepot-engine/internal/vault"
)

func TestLedger_CreditTransferBurn(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := pgstore.NewLedger(pool)
	ctx := context.Background()

	// Unknown accounts report zero, not an error.
	bal, err := ledger.Balance(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)

	require.NoError(t, ledger.Credit(ctx, "alice", 1_000))
	require.NoError(t, ledger.Credit(ctx, "alice", 500))
	bal, err = ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500), bal)

	// Transfer creates the destination account on the fly.
	require.NoError(t, ledger.Transfer(ctx, "alice", "bob", 600))
	bal, _ = ledger.Balance(ctx, "alice")
	assert.Equal(t, uint64(900), bal)
	bal, _ = ledger.Balance(ctx, "bob")
	assert.Equal(t, uint64(600), bal)

	// Overdraft fails without partial effects.
	err = ledger.Transfer(ctx, "bob", "alice", 601)
	assert.ErrorIs(t, err, vault.ErrInsufficientFunds)
	bal, _ = ledger.Balance(ctx, "bob")
	assert.Equal(t, uint64(600), bal)
	bal, _ = ledger.Balance(ctx, "alice")
	assert.Equal(t, uint64(900), bal)

	// Burn reduces supply and is tracked.
	require.NoError(t, ledger.Burn(ctx, "alice", 300))
	bal, _ = ledger.Balance(ctx, "alice")
	assert.Equal(t, uint64(600), bal)
	burned, err := ledger.Burned(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), burned)

	err = ledger.Burn(ctx, "alice", 10_000)
	assert.ErrorIs(t, err, vault.ErrInsufficientFunds)
	burned, _ = ledger.Burned(ctx)
	assert.Equal(t, uint64(300), burned)
}
