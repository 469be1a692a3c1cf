package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tykhepot-engine/internal/observability"
	"tykhepot-engine/internal/vault"
)

// Ledger implements vault.Ledger on PostgreSQL. Every debit is guarded by a
// balance check in the UPDATE itself, so concurrent spenders can never push
// an account negative.
type Ledger struct {
	pool *Pool
}

// NewLedger creates a new Ledger.
func NewLedger(pool *Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Compile-time interface check.
var _ vault.Ledger = (*Ledger)(nil)

// Balance returns the account balance; unknown accounts report zero.
func (l *Ledger) Balance(ctx context.Context, account string) (uint64, error) {
	query := `SELECT balance FROM vault_accounts WHERE account = $1`

	var balance int64
	err := l.pool.QueryRow(ctx, query, account).Scan(&balance)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("account balance: %w", err)
	}
	return uint64(balance), nil
}

// Credit adds amount to an account, creating it if needed.
func (l *Ledger) Credit(ctx context.Context, account string, amount uint64) error {
	query := `
		INSERT INTO vault_accounts (account, balance) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = vault_accounts.balance + EXCLUDED.balance
	`

	if _, err := l.pool.Exec(ctx, query, account, int64(amount)); err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	return nil
}

// Transfer moves amount between accounts atomically.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount uint64) (err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "ledger_transfer", time.Since(start).Seconds(), err) }()

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("transfer: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := debitTx(ctx, tx, from, amount); err != nil {
		return fmt.Errorf("transfer from %s: %w", from, err)
	}

	creditQuery := `
		INSERT INTO vault_accounts (account, balance) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = vault_accounts.balance + EXCLUDED.balance
	`
	if _, err := tx.Exec(ctx, creditQuery, to, int64(amount)); err != nil {
		return fmt.Errorf("transfer to %s: %w", to, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("transfer: commit: %w", err)
	}
	return nil
}

// Burn destroys amount from an account and records it in the lifetime
// burn counter.
func (l *Ledger) Burn(ctx context.Context, from string, amount uint64) (err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "ledger_burn", time.Since(start).Seconds(), err) }()

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("burn: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := debitTx(ctx, tx, from, amount); err != nil {
		return fmt.Errorf("burn from %s: %w", from, err)
	}

	burnQuery := `UPDATE vault_burn_total SET total = total + $1 WHERE singleton = 1`
	if _, err := tx.Exec(ctx, burnQuery, int64(amount)); err != nil {
		return fmt.Errorf("burn: record total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("burn: commit: %w", err)
	}
	return nil
}

// Burned returns the lifetime burn total.
func (l *Ledger) Burned(ctx context.Context) (uint64, error) {
	var total int64
	err := l.pool.QueryRow(ctx, `SELECT total FROM vault_burn_total WHERE singleton = 1`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("burn total: %w", err)
	}
	return uint64(total), nil
}

// debitTx subtracts amount inside a transaction. Affecting zero rows means
// the balance guard failed (or the account never existed, which is the same
// thing for a debit).
func debitTx(ctx context.Context, tx pgx.Tx, from string, amount uint64) error {
	query := `
		UPDATE vault_accounts SET balance = balance - $2
		WHERE account = $1 AND balance >= $2
	`

	tag, err := tx.Exec(ctx, query, from, int64(amount))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vault.ErrInsufficientFunds
	}
	return nil
}
