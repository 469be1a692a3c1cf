package memory

import (
	"context"
	"sync"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[domain.PoolType]*domain.PoolState
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[domain.PoolType]*domain.PoolState),
	}
}

// Create registers a pool. Returns ErrDuplicateKey if it exists.
func (s *PoolStore) Create(_ context.Context, p *domain.PoolState) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PoolType]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.PoolType] = &copy
	return nil
}

// Get retrieves a pool's round state.
func (s *PoolStore) Get(_ context.Context, pool domain.PoolType) (*domain.PoolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[pool]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

// Update overwrites the pool's round state.
func (s *PoolStore) Update(_ context.Context, p *domain.PoolState) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PoolType]; !exists {
		return storage.ErrNotFound
	}

	copy := *p
	s.data[p.PoolType] = &copy
	return nil
}

var _ storage.PoolStore = (*PoolStore)(nil)
