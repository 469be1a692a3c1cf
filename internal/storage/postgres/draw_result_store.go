package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// DrawResultStore implements storage.DrawResultStore using PostgreSQL.
// Winner arrays are stored as Postgres arrays, one row per drawn round.
type DrawResultStore struct {
	pool *Pool
}

// NewDrawResultStore creates a new DrawResultStore.
func NewDrawResultStore(pool *Pool) *DrawResultStore {
	return &DrawResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DrawResultStore = (*DrawResultStore)(nil)

// Insert adds a draw result. The (pool_type, round_number) primary key is
// the double-draw guard.
func (s *DrawResultStore) Insert(ctx context.Context, r *domain.DrawResult) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	winners := make([]string, domain.TopWinnerCount)
	amounts := make([]int64, domain.TopWinnerCount)
	claimed := make([]int64, domain.TopWinnerCount)
	for i := 0; i < domain.TopWinnerCount; i++ {
		winners[i] = r.TopWinners[i]
		amounts[i] = int64(r.TopAmounts[i])
		claimed[i] = int64(r.TopClaimed[i])
	}

	query := `
		INSERT INTO draw_results (
			pool_type, round_number, top_winners, top_amounts, top_claimed,
			draw_timestamp, seed
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		int16(r.PoolType), int64(r.RoundNumber),
		winners, amounts, claimed,
		r.DrawTimestamp, r.Seed[:],
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert draw result: %w", err)
	}
	return nil
}

// Get retrieves the result for (pool, round).
func (s *DrawResultStore) Get(ctx context.Context, pool domain.PoolType, round uint64) (*domain.DrawResult, error) {
	query := `
		SELECT pool_type, round_number, top_winners, top_amounts, top_claimed,
		       draw_timestamp, seed
		FROM draw_results
		WHERE pool_type = $1 AND round_number = $2
	`

	row := s.pool.QueryRow(ctx, query, int16(pool), int64(round))
	r, err := scanDrawResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get draw result: %w", err)
	}
	return r, nil
}

// AddClaimed advances TopClaimed[slot] by amount, compare-and-swap style:
// the row only updates when the stored claimed value still equals the
// caller's expectation, so a racing claim affects no rows and retries
// against fresh state.
func (s *DrawResultStore) AddClaimed(ctx context.Context, pool domain.PoolType, round uint64, slot int, claimed, amount uint64) error {
	if slot < 0 || slot >= domain.TopWinnerCount {
		return storage.ErrInvalidInput
	}

	// Postgres arrays are 1-based.
	query := `
		UPDATE draw_results
		SET top_claimed[$3] = top_claimed[$3] + $5
		WHERE pool_type = $1 AND round_number = $2
		  AND top_claimed[$3] = $4
		  AND top_claimed[$3] + $5 <= top_amounts[$3]
	`

	tag, err := s.pool.Exec(ctx, query, int16(pool), int64(round), slot+1, int64(claimed), int64(amount))
	if err != nil {
		return fmt.Errorf("add claimed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row, a lost race, and an over-claim.
		r, err := s.Get(ctx, pool, round)
		if err != nil {
			return err
		}
		if r.TopClaimed[slot] != claimed {
			return storage.ErrStaleUpdate
		}
		return storage.ErrInvalidInput
	}
	return nil
}

// ListUnfinished retrieves results whose vesting is not fully claimed,
// ordered by draw time then pool/round.
func (s *DrawResultStore) ListUnfinished(ctx context.Context) ([]*domain.DrawResult, error) {
	query := `
		SELECT pool_type, round_number, top_winners, top_amounts, top_claimed,
		       draw_timestamp, seed
		FROM draw_results
		WHERE top_claimed <> top_amounts
		ORDER BY draw_timestamp ASC, pool_type ASC, round_number ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list unfinished draw results: %w", err)
	}
	defer rows.Close()

	var results []*domain.DrawResult
	for rows.Next() {
		r, err := scanDrawResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draw result row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draw result rows: %w", err)
	}
	return results, nil
}

func scanDrawResult(row pgx.Row) (*domain.DrawResult, error) {
	var r domain.DrawResult
	var poolType int16
	var round int64
	var winners []string
	var amounts, claimed []int64
	var seed []byte

	err := row.Scan(&poolType, &round, &winners, &amounts, &claimed, &r.DrawTimestamp, &seed)
	if err != nil {
		return nil, err
	}
	if len(winners) != domain.TopWinnerCount || len(amounts) != domain.TopWinnerCount ||
		len(claimed) != domain.TopWinnerCount || len(seed) != len(r.Seed) {
		return nil, fmt.Errorf("draw result row has malformed arrays")
	}

	r.PoolType = domain.PoolType(poolType)
	r.RoundNumber = uint64(round)
	for i := 0; i < domain.TopWinnerCount; i++ {
		r.TopWinners[i] = winners[i]
		r.TopAmounts[i] = uint64(amounts[i])
		r.TopClaimed[i] = uint64(claimed[i])
	}
	copy(r.Seed[:], seed)
	return &r, nil
}
