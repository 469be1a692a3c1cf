package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// DepositStore implements storage.DepositStore using PostgreSQL.
type DepositStore struct {
	pool *Pool
}

// NewDepositStore creates a new DepositStore.
func NewDepositStore(pool *Pool) *DepositStore {
	return &DepositStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DepositStore = (*DepositStore)(nil)

// Insert adds a deposit. The (pool_type, round_number, user_address)
// primary key makes a second insert fail with ErrDuplicateKey.
func (s *DepositStore) Insert(ctx context.Context, d *domain.UserDeposit) error {
	if d == nil || d.User == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO user_deposits (
			pool_type, round_number, user_address, amount, reserve_match, referrer, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		int16(d.PoolType),
		int64(d.RoundNumber),
		d.User,
		int64(d.Amount),
		int64(d.ReserveMatch),
		d.Referrer,
		d.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

// Get retrieves one deposit by its key.
func (s *DepositStore) Get(ctx context.Context, pool domain.PoolType, round uint64, user string) (*domain.UserDeposit, error) {
	query := `
		SELECT pool_type, round_number, user_address, amount, reserve_match, referrer, created_at
		FROM user_deposits
		WHERE pool_type = $1 AND round_number = $2 AND user_address = $3
	`

	row := s.pool.QueryRow(ctx, query, int16(pool), int64(round), user)
	d, err := scanDeposit(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get deposit: %w", err)
	}
	return d, nil
}

// ListByRound retrieves a round's deposits in creation order, then by user
// address. This ordering is the canonical draw ordering.
func (s *DepositStore) ListByRound(ctx context.Context, pool domain.PoolType, round uint64) ([]*domain.UserDeposit, error) {
	query := `
		SELECT pool_type, round_number, user_address, amount, reserve_match, referrer, created_at
		FROM user_deposits
		WHERE pool_type = $1 AND round_number = $2
		ORDER BY created_at ASC, user_address ASC
	`

	rows, err := s.pool.Query(ctx, query, int16(pool), int64(round))
	if err != nil {
		return nil, fmt.Errorf("list deposits by round: %w", err)
	}
	defer rows.Close()

	return scanDeposits(rows)
}

// ListWithReferrer retrieves deposits still owing a referral fee.
func (s *DepositStore) ListWithReferrer(ctx context.Context, pool domain.PoolType) ([]*domain.UserDeposit, error) {
	query := `
		SELECT pool_type, round_number, user_address, amount, reserve_match, referrer, created_at
		FROM user_deposits
		WHERE pool_type = $1 AND referrer <> ''
		ORDER BY round_number ASC, created_at ASC, user_address ASC
	`

	rows, err := s.pool.Query(ctx, query, int16(pool))
	if err != nil {
		return nil, fmt.Errorf("list deposits with referrer: %w", err)
	}
	defer rows.Close()

	return scanDeposits(rows)
}

// ClearReferrer empties the deposit's referrer field. One-shot: the
// referrer <> '' predicate means only one of two racing claims sees a row
// update; the loser gets ErrNotFound.
func (s *DepositStore) ClearReferrer(ctx context.Context, pool domain.PoolType, round uint64, user string) error {
	query := `
		UPDATE user_deposits SET referrer = ''
		WHERE pool_type = $1 AND round_number = $2 AND user_address = $3
		  AND referrer <> ''
	`

	tag, err := s.pool.Exec(ctx, query, int16(pool), int64(round), user)
	if err != nil {
		return fmt.Errorf("clear referrer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanDeposit(row pgx.Row) (*domain.UserDeposit, error) {
	var d domain.UserDeposit
	var poolType int16
	var round, amount, match int64

	err := row.Scan(&poolType, &round, &d.User, &amount, &match, &d.Referrer, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	d.PoolType = domain.PoolType(poolType)
	d.RoundNumber = uint64(round)
	d.Amount = uint64(amount)
	d.ReserveMatch = uint64(match)
	return &d, nil
}

func scanDeposits(rows pgx.Rows) ([]*domain.UserDeposit, error) {
	var deposits []*domain.UserDeposit

	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit row: %w", err)
		}
		deposits = append(deposits, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deposit rows: %w", err)
	}
	return deposits, nil
}
