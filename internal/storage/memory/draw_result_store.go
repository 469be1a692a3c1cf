package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// DrawResultStore is an in-memory implementation of storage.DrawResultStore.
type DrawResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DrawResult // keyed by pool|round
}

// NewDrawResultStore creates a new in-memory draw result store.
func NewDrawResultStore() *DrawResultStore {
	return &DrawResultStore{
		data: make(map[string]*domain.DrawResult),
	}
}

func drawResultKey(pool domain.PoolType, round uint64) string {
	return fmt.Sprintf("%d|%d", pool, round)
}

// Insert adds a draw result. Returns ErrDuplicateKey if (pool, round) was
// already drawn.
func (s *DrawResultStore) Insert(_ context.Context, r *domain.DrawResult) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	key := drawResultKey(r.PoolType, r.RoundNumber)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[key] = &copy
	return nil
}

// Get retrieves the result for (pool, round).
func (s *DrawResultStore) Get(_ context.Context, pool domain.PoolType, round uint64) (*domain.DrawResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[drawResultKey(pool, round)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

// AddClaimed increases TopClaimed[slot] by amount when the stored value
// still equals claimed, rejecting any update that would push the claimed
// total past the awarded total. A stale expectation means another claim
// landed first.
func (s *DrawResultStore) AddClaimed(_ context.Context, pool domain.PoolType, round uint64, slot int, claimed, amount uint64) error {
	if slot < 0 || slot >= domain.TopWinnerCount {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[drawResultKey(pool, round)]
	if !exists {
		return storage.ErrNotFound
	}
	if r.TopClaimed[slot] != claimed {
		return storage.ErrStaleUpdate
	}

	next := claimed + amount
	if next < claimed || next > r.TopAmounts[slot] {
		return storage.ErrInvalidInput
	}
	r.TopClaimed[slot] = next
	return nil
}

// ListUnfinished retrieves results whose vesting is not fully claimed,
// ordered by draw time then pool/round for a stable crank order.
func (s *DrawResultStore) ListUnfinished(_ context.Context) ([]*domain.DrawResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DrawResult
	for _, r := range s.data {
		if !r.VestingComplete() {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DrawTimestamp != result[j].DrawTimestamp {
			return result[i].DrawTimestamp < result[j].DrawTimestamp
		}
		if result[i].PoolType != result[j].PoolType {
			return result[i].PoolType < result[j].PoolType
		}
		return result[i].RoundNumber < result[j].RoundNumber
	})

	return result, nil
}

var _ storage.DrawResultStore = (*DrawResultStore)(nil)
