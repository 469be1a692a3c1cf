package storage

import (
	"context"

	"tykhepot-engine/internal/domain"
)

// PoolStore provides access to the three per-pool round states.
type PoolStore interface {
	// Create registers a pool at protocol setup. Returns ErrDuplicateKey
	// if the pool already exists.
	Create(ctx context.Context, p *domain.PoolState) error

	// Get retrieves a pool's current round state. Returns ErrNotFound if
	// the pool was never initialized.
	Get(ctx context.Context, pool domain.PoolType) (*domain.PoolState, error)

	// Update overwrites the pool's round state in place.
	Update(ctx context.Context, p *domain.PoolState) error
}

// DepositStore provides access to regular deposit records.
type DepositStore interface {
	// Insert adds a deposit. Returns ErrDuplicateKey if a record for
	// (pool, round, user) already exists — the double-deposit guard.
	Insert(ctx context.Context, d *domain.UserDeposit) error

	// Get retrieves one deposit. Returns ErrNotFound if not present.
	Get(ctx context.Context, pool domain.PoolType, round uint64, user string) (*domain.UserDeposit, error)

	// ListByRound retrieves all deposits for (pool, round) ordered by
	// creation time, then user address for a stable draw ordering.
	ListByRound(ctx context.Context, pool domain.PoolType, round uint64) ([]*domain.UserDeposit, error)

	// ListWithReferrer retrieves deposits that still carry a referrer,
	// across all rounds of a pool. Used by the referral crank.
	ListWithReferrer(ctx context.Context, pool domain.PoolType) ([]*domain.UserDeposit, error)

	// ClearReferrer sets the deposit's referrer to empty. One-shot: returns
	// ErrNotFound if the record is missing or the referrer was already
	// cleared, so exactly one concurrent claimer wins the clear.
	ClearReferrer(ctx context.Context, pool domain.PoolType, round uint64, user string) error
}

// FreeDepositStore provides access to promotional (free-bet) stakes.
type FreeDepositStore interface {
	// Insert adds a free deposit. Returns ErrDuplicateKey if an active
	// record for (pool, user) already exists.
	Insert(ctx context.Context, d *domain.FreeDeposit) error

	// Get retrieves the free deposit for (pool, user), active or not.
	Get(ctx context.Context, pool domain.PoolType, user string) (*domain.FreeDeposit, error)

	// ListActive retrieves all active free deposits for a pool, ordered by
	// creation time then user address.
	ListActive(ctx context.Context, pool domain.PoolType) ([]*domain.FreeDeposit, error)

	// Deactivate clears the Active flag after a successful draw consumed
	// the stake. Returns ErrNotFound if no record exists.
	Deactivate(ctx context.Context, pool domain.PoolType, user string) error

	// Delete removes the record so the user can activate a new free bet
	// later. Only called for already-consumed records.
	Delete(ctx context.Context, pool domain.PoolType, user string) error
}

// GrantStore provides access to one-time free-bet eligibility grants.
type GrantStore interface {
	// Insert registers a grant. Returns ErrDuplicateKey if the user has
	// already claimed eligibility — the one-time guard.
	Insert(ctx context.Context, g *domain.FreeBetGrant) error

	// Get retrieves a user's grant. Returns ErrNotFound if never claimed.
	Get(ctx context.Context, user string) (*domain.FreeBetGrant, error)

	// Consume marks the grant used. Returns ErrNotFound if absent.
	Consume(ctx context.Context, user string) error
}

// DrawResultStore provides access to per-round draw/vesting records.
type DrawResultStore interface {
	// Insert adds a draw result. Returns ErrDuplicateKey if (pool, round)
	// was already drawn — double-draw protection.
	Insert(ctx context.Context, r *domain.DrawResult) error

	// Get retrieves the result for (pool, round). ErrNotFound means the
	// round refunded (or hasn't settled) — the referral gate relies on this.
	Get(ctx context.Context, pool domain.PoolType, round uint64) (*domain.DrawResult, error)

	// AddClaimed increases TopClaimed[slot] by amount, but only if the
	// stored value still equals claimed. Returns ErrStaleUpdate when another
	// claim got there first, and ErrInvalidInput if the new value would
	// exceed TopAmounts[slot].
	AddClaimed(ctx context.Context, pool domain.PoolType, round uint64, slot int, claimed, amount uint64) error

	// ListUnfinished retrieves results whose vesting is not yet fully
	// claimed, for the vesting crank.
	ListUnfinished(ctx context.Context) ([]*domain.DrawResult, error)
}
