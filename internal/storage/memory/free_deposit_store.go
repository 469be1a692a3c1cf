package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// FreeDepositStore is an in-memory implementation of storage.FreeDepositStore.
type FreeDepositStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FreeDeposit // keyed by pool|user
}

// NewFreeDepositStore creates a new in-memory free deposit store.
func NewFreeDepositStore() *FreeDepositStore {
	return &FreeDepositStore{
		data: make(map[string]*domain.FreeDeposit),
	}
}

func freeDepositKey(pool domain.PoolType, user string) string {
	return fmt.Sprintf("%d|%s", pool, user)
}

// Insert adds a free deposit. Returns ErrDuplicateKey if one exists for
// (pool, user).
func (s *FreeDepositStore) Insert(_ context.Context, d *domain.FreeDeposit) error {
	if d == nil || d.User == "" {
		return storage.ErrInvalidInput
	}

	key := freeDepositKey(d.PoolType, d.User)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *d
	s.data[key] = &copy
	return nil
}

// Get retrieves the free deposit for (pool, user).
func (s *FreeDepositStore) Get(_ context.Context, pool domain.PoolType, user string) (*domain.FreeDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[freeDepositKey(pool, user)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *d
	return &copy, nil
}

// ListActive retrieves all active free deposits for a pool, ordered by
// creation time then user address.
func (s *FreeDepositStore) ListActive(_ context.Context, pool domain.PoolType) ([]*domain.FreeDeposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FreeDeposit
	for _, d := range s.data {
		if d.PoolType == pool && d.Active {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].User < result[j].User
	})

	return result, nil
}

// Deactivate clears the Active flag.
func (s *FreeDepositStore) Deactivate(_ context.Context, pool domain.PoolType, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.data[freeDepositKey(pool, user)]
	if !exists {
		return storage.ErrNotFound
	}
	d.Active = false
	return nil
}

// Delete removes the record entirely.
func (s *FreeDepositStore) Delete(_ context.Context, pool domain.PoolType, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := freeDepositKey(pool, user)
	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

var _ storage.FreeDepositStore = (*FreeDepositStore)(nil)
