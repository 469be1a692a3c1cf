package postgres

import (
	"context"
	"fmt"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

// GrantStore implements storage.GrantStore using PostgreSQL.
type GrantStore struct {
	pool *Pool
}

// NewGrantStore creates a new GrantStore.
func NewGrantStore(pool *Pool) *GrantStore {
	return &GrantStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GrantStore = (*GrantStore)(nil)

// Insert registers a grant. The user_address primary key is the one-time
// eligibility guard.
func (s *GrantStore) Insert(ctx context.Context, g *domain.FreeBetGrant) error {
	if g == nil || g.User == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO free_bet_grants (user_address, available, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, g.User, g.Available, g.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

// Get retrieves a user's grant.
func (s *GrantStore) Get(ctx context.Context, user string) (*domain.FreeBetGrant, error) {
	query := `
		SELECT user_address, available, created_at
		FROM free_bet_grants
		WHERE user_address = $1
	`

	var g domain.FreeBetGrant
	err := s.pool.QueryRow(ctx, query, user).Scan(&g.User, &g.Available, &g.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get grant: %w", err)
	}
	return &g, nil
}

// Consume marks the grant used.
func (s *GrantStore) Consume(ctx context.Context, user string) error {
	query := `
		UPDATE free_bet_grants SET available = FALSE
		WHERE user_address = $1
	`

	tag, err := s.pool.Exec(ctx, query, user)
	if err != nil {
		return fmt.Errorf("consume grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
