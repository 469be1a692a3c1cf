package memory

import (
	"context"
	"sync"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// GrantStore is an in-memory implementation of storage.GrantStore.
type GrantStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FreeBetGrant // keyed by user
}

// NewGrantStore creates a new in-memory grant store.
func NewGrantStore() *GrantStore {
	return &GrantStore{
		data: make(map[string]*domain.FreeBetGrant),
	}
}

// Insert registers a one-time grant. Returns ErrDuplicateKey if the user
// already claimed eligibility.
func (s *GrantStore) Insert(_ context.Context, g *domain.FreeBetGrant) error {
	if g == nil || g.User == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[g.User]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *g
	s.data[g.User] = &copy
	return nil
}

// Get retrieves a user's grant.
func (s *GrantStore) Get(_ context.Context, user string) (*domain.FreeBetGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, exists := s.data[user]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *g
	return &copy, nil
}

// Consume marks the grant used.
func (s *GrantStore) Consume(_ context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, exists := s.data[user]
	if !exists {
		return storage.ErrNotFound
	}
	g.Available = false
	return nil
}

var _ storage.GrantStore = (*GrantStore)(nil)
