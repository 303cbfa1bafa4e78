package ports

import (
	"context"

	"github.com/islandman/hotel-listing/internal/core/domain"
)

// PrincipalRepository defines persistence for authenticable identities.
type PrincipalRepository interface {
	// FindByIdentifier matches username or email, case-insensitively.
	// Returns domain.ErrUserNotFound when nothing matches.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error)
	// Create stores p together with its roles. Returns domain.ErrUserExists
	// when the username or email is taken.
	Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error)
	// AssignRoles adds roles to an existing principal; roles already held are ignored.
	AssignRoles(ctx context.Context, principalID string, roles ...string) error
}
