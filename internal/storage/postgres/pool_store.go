package postgres

import (
	"context"
	"fmt"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Create registers a pool. Returns ErrDuplicateKey if it already exists.
func (s *PoolStore) Create(ctx context.Context, p *domain.PoolState) error {
	if p == nil || p.Vault == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pool_states (
			pool_type, round_number, round_start_time, round_end_time,
			total_deposited, free_bet_total, regular_count, free_count,
			vault, rollover
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		int16(p.PoolType),
		int64(p.RoundNumber),
		p.RoundStartTime,
		p.RoundEndTime,
		int64(p.TotalDeposited),
		int64(p.FreeBetTotal),
		int32(p.RegularCount),
		int32(p.FreeCount),
		p.Vault,
		int64(p.Rollover),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool state: %w", err)
	}
	return nil
}

// Get retrieves a pool's current round state.
func (s *PoolStore) Get(ctx context.Context, pool domain.PoolType) (*domain.PoolState, error) {
	query := `
		SELECT pool_type, round_number, round_start_time, round_end_time,
		       total_deposited, free_bet_total, regular_count, free_count,
		       vault, rollover
		FROM pool_states
		WHERE pool_type = $1
	`

	var p domain.PoolState
	var poolType int16
	var roundNumber, totalDeposited, freeBetTotal, rollover int64
	var regularCount, freeCount int32

	err := s.pool.QueryRow(ctx, query, int16(pool)).Scan(
		&poolType, &roundNumber, &p.RoundStartTime, &p.RoundEndTime,
		&totalDeposited, &freeBetTotal, &regularCount, &freeCount,
		&p.Vault, &rollover,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool state: %w", err)
	}

	p.PoolType = domain.PoolType(poolType)
	p.RoundNumber = uint64(roundNumber)
	p.TotalDeposited = uint64(totalDeposited)
	p.FreeBetTotal = uint64(freeBetTotal)
	p.RegularCount = uint32(regularCount)
	p.FreeCount = uint32(freeCount)
	p.Rollover = uint64(rollover)
	return &p, nil
}

// Update overwrites the pool's round state.
func (s *PoolStore) Update(ctx context.Context, p *domain.PoolState) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE pool_states SET
			round_number = $2, round_start_time = $3, round_end_time = $4,
			total_deposited = $5, free_bet_total = $6,
			regular_count = $7, free_count = $8,
			vault = $9, rollover = $10
		WHERE pool_type = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		int16(p.PoolType),
		int64(p.RoundNumber),
		p.RoundStartTime,
		p.RoundEndTime,
		int64(p.TotalDeposited),
		int64(p.FreeBetTotal),
		int32(p.RegularCount),
		int32(p.FreeCount),
		p.Vault,
		int64(p.Rollover),
	)
	if err != nil {
		return fmt.Errorf("update pool state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
