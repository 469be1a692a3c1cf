package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// DepositStore is an in-memory implementation of storage.DepositStore.
type DepositStore struct {
	mu   sync.RWMutex
	data map[string]*domain.UserDeposit // keyed by pool|round|user
}

// NewDepositStore creates a new in-memory deposit store.
func NewDepositStore() *DepositStore {
	return &DepositStore{
		data: make(map[string]*domain.UserDeposit),
	}
}

// depositKey generates the exclusive key for a deposit.
func depositKey(pool domain.PoolType, round uint64, user string) string {
	return fmt.Sprintf("%d|%d|%s", pool, round, user)
}

// Insert adds a deposit. Returns ErrDuplicateKey if (pool, round, user) exists.
func (s *DepositStore) Insert(_ context.Context, d *domain.UserDeposit) error {
	if d == nil || d.User == "" {
		return storage.ErrInvalidInput
	}

	key := depositKey(d.PoolType, d.RoundNumber, d.User)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *d
	s.data[key] = &copy
	return nil
}

// Get retrieves one deposit.
func (s *DepositStore) Get(_ context.Context, pool domain.PoolType, round uint64, user string) (*domain.UserDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[depositKey(pool, round, user)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *d
	return &copy, nil
}

// ListByRound retrieves all deposits for (pool, round), ordered by creation
// time then user address. The ordering is part of the draw's public audit
// story: a verifier must be able to reproduce the participant list.
func (s *DepositStore) ListByRound(_ context.Context, pool domain.PoolType, round uint64) ([]*domain.UserDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.UserDeposit
	for _, d := range s.data {
		if d.PoolType == pool && d.RoundNumber == round {
			copy := *d
			result = append(result, &copy)
		}
	}

	sortDeposits(result)
	return result, nil
}

// ListWithReferrer retrieves deposits still carrying a referrer.
func (s *DepositStore) ListWithReferrer(_ context.Context, pool domain.PoolType) ([]*domain.UserDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.UserDeposit
	for _, d := range s.data {
		if d.PoolType == pool && d.Referrer != "" {
			copy := *d
			result = append(result, &copy)
		}
	}

	sortDeposits(result)
	return result, nil
}

// ClearReferrer sets the deposit's referrer to empty. One-shot: an already
// cleared referrer reports ErrNotFound so a racing claimer loses cleanly.
func (s *DepositStore) ClearReferrer(_ context.Context, pool domain.PoolType, round uint64, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.data[depositKey(pool, round, user)]
	if !exists || d.Referrer == "" {
		return storage.ErrNotFound
	}
	d.Referrer = ""
	return nil
}

func sortDeposits(deposits []*domain.UserDeposit) {
	sort.Slice(deposits, func(i, j int) bool {
		if deposits[i].CreatedAt != deposits[j].CreatedAt {
			return deposits[i].CreatedAt < deposits[j].CreatedAt
		}
		return deposits[i].User < deposits[j].User
	})
}

var _ storage.DepositStore = (*DepositStore)(nil)
