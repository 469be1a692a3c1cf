package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// FreeDepositStore implements storage.FreeDepositStore using PostgreSQL.
type FreeDepositStore struct {
	pool *Pool
}

// NewFreeDepositStore creates a new FreeDepositStore.
func NewFreeDepositStore(pool *Pool) *FreeDepositStore {
	return &FreeDepositStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FreeDepositStore = (*FreeDepositStore)(nil)

// Insert adds a free deposit. Returns ErrDuplicateKey if a record already
// occupies the (pool_type, user_address) slot.
func (s *FreeDepositStore) Insert(ctx context.Context, d *domain.FreeDeposit) error {
	if d == nil || d.User == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO free_deposits (
			pool_type, user_address, amount, reserve_match, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		int16(d.PoolType), d.User, int64(d.Amount), int64(d.ReserveMatch), d.Active, d.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert free deposit: %w", err)
	}
	return nil
}

// Get retrieves the free deposit for (pool, user).
func (s *FreeDepositStore) Get(ctx context.Context, pool domain.PoolType, user string) (*domain.FreeDeposit, error) {
	query := `
		SELECT pool_type, user_address, amount, reserve_match, active, created_at
		FROM free_deposits
		WHERE pool_type = $1 AND user_address = $2
	`

	row := s.pool.QueryRow(ctx, query, int16(pool), user)
	d, err := scanFreeDeposit(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get free deposit: %w", err)
	}
	return d, nil
}

// ListActive retrieves the pool's live stakes in creation order, then by
// user address.
func (s *FreeDepositStore) ListActive(ctx context.Context, pool domain.PoolType) ([]*domain.FreeDeposit, error) {
	query := `
		SELECT pool_type, user_address, amount, reserve_match, active, created_at
		FROM free_deposits
		WHERE pool_type = $1 AND active
		ORDER BY created_at ASC, user_address ASC
	`

	rows, err := s.pool.Query(ctx, query, int16(pool))
	if err != nil {
		return nil, fmt.Errorf("list active free deposits: %w", err)
	}
	defer rows.Close()

	var deposits []*domain.FreeDeposit
	for rows.Next() {
		d, err := scanFreeDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan free deposit row: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate free deposit rows: %w", err)
	}
	return deposits, nil
}

// Deactivate clears the Active flag after a draw consumed the stake.
func (s *FreeDepositStore) Deactivate(ctx context.Context, pool domain.PoolType, user string) error {
	query := `
		UPDATE free_deposits SET active = FALSE
		WHERE pool_type = $1 AND user_address = $2
	`

	tag, err := s.pool.Exec(ctx, query, int16(pool), user)
	if err != nil {
		return fmt.Errorf("deactivate free deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes the record entirely.
func (s *FreeDepositStore) Delete(ctx context.Context, pool domain.PoolType, user string) error {
	query := `
		DELETE FROM free_deposits
		WHERE pool_type = $1 AND user_address = $2
	`

	tag, err := s.pool.Exec(ctx, query, int16(pool), user)
	if err != nil {
		return fmt.Errorf("delete free deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanFreeDeposit(row pgx.Row) (*domain.FreeDeposit, error) {
	var d domain.FreeDeposit
	var poolType int16
	var amount, match int64

	err := row.Scan(&poolType, &d.User, &amount, &match, &d.Active, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	d.PoolType = domain.PoolType(poolType)
	d.Amount = uint64(amount)
	d.ReserveMatch = uint64(match)
	return &d, nil
}
