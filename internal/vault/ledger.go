// Package vault models the asset-custody collaborator: integer balances
// held by named accounts, moved atomically by the engine. The engine only
// ever debits accounts it controls (pool vaults, escrow, funding vaults).
package vault

import (
	"context"
	"errors"
)

// Ledger errors.
var (
	// ErrInsufficientFunds is returned when a debit exceeds the account
	// balance. The referral vault is the one place this is tolerated
	// (payment is capped instead).
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownAccount is returned for an account that was never funded
	// or created.
	ErrUnknownAccount = errors.New("unknown account")
)

// Ledger is the custody primitive. Implementations must apply each call
// atomically: a failed transfer leaves both balances untouched.
type Ledger interface {
	// Balance returns the current balance of an account. Unknown accounts
	// report zero, not an error, so cap-at-balance logic stays simple.
	Balance(ctx context.Context, account string) (uint64, error)

	// Credit adds amount to an account, creating it if needed.
	Credit(ctx context.Context, account string, amount uint64) error

	// Transfer moves amount from one account to another. Fails with
	// ErrInsufficientFunds without partial effects.
	Transfer(ctx context.Context, from, to string, amount uint64) error

	// Burn destroys amount from an account, reducing total supply.
	Burn(ctx context.Context, from string, amount uint64) error
}

// Accounts names the protocol-level vaults the engine pays into and out of.
// Pool vaults live on each PoolState instead.
type Accounts struct {
	PlatformFee string // receives the 2% platform fee
	PrizeEscrow string // holds vested top-tier prizes until claimed
	Referral    string // funds the 8% referral fee, until depleted
	Reserve     string // funds daily-pool 1:1 matching, until depleted
	Promo       string // funds free-bet stakes
}
