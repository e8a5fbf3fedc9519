package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mwhited/taskflow/internal/auth"
)

// AuthAdapter adapts user.Store to the auth.PrincipalLookup interface.
type AuthAdapter struct {
	store *Store
}

// NewAuthAdapter creates a new AuthAdapter wrapping the given user store.
func NewAuthAdapter(store *Store) *AuthAdapter {
	return &AuthAdapter{store: store}
}

// LookupPrincipal fetches the live user record for a token subject. A missing
// row maps to auth.ErrPrincipalNotFound; any other store error propagates so
// the gate can fail the request with 503 instead of guessing.
func (a *AuthAdapter) LookupPrincipal(ctx context.Context, id uuid.UUID) (*auth.Principal, error) {
	u, err := a.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrPrincipalNotFound
		}
		return nil, err
	}
	return &auth.Principal{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Role:    u.Role,
		IsOwner: u.IsOwner,
	}, nil
}
