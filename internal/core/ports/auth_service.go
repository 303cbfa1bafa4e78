package ports

import (
	"context"

	"github.com/islandman/hotel-listing/internal/core/domain"
)

// RegisterInput carries what the account endpoint collects for a new principal.
type RegisterInput struct {
	UserName  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Roles     []string
}

// AuthService verifies credentials and mints bearer tokens.
type AuthService interface {
	VerifyCredentials(ctx context.Context, identifier, secret string) (*domain.Principal, error)
	IssueToken(ctx context.Context, p *domain.Principal) (domain.Token, error)
	Login(ctx context.Context, identifier, secret string) (domain.Token, *domain.Principal, error)
	Register(ctx context.Context, in RegisterInput) (*domain.Principal, error)
	AssignRoles(ctx context.Context, principalID string, roles ...string) error
}

// TokenVerifier re-derives token validity from signature, issuer, audience
// and expiry alone.
type TokenVerifier interface {
	Verify(raw string) (*domain.Claims, error)
}
