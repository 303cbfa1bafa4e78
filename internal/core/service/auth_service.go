package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

// TokenIssuer mints signed tokens for a verified principal.
type TokenIssuer interface {
	Issue(p *domain.Principal) (domain.Token, error)
}

// AuthService implements credential verification, token issuance and
// account registration.
type AuthService struct {
	repo      ports.PrincipalRepository
	tokens    TokenIssuer
	cost      int
	dummyHash []byte
	log       zerolog.Logger
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost overrides bcrypt.DefaultCost. Costs outside
// [bcrypt.MinCost, bcrypt.MaxCost] are ignored.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func NewAuthService(repo ports.PrincipalRepository, tokens TokenIssuer, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost, log: log}
	for _, opt := range opts {
		opt(s)
	}

	// Unknown identifiers are compared against this hash so that both
	// failure paths take the same time.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost)
	if err != nil {
		log.Warn().Err(err).Msg("could not prepare dummy password hash")
	}
	s.dummyHash = hash
	return s
}

// VerifyCredentials returns the principal identified by username or email
// when secret matches its stored hash. Every mismatch yields
// domain.ErrInvalidCredentials.
func (s *AuthService) VerifyCredentials(ctx context.Context, identifier, secret string) (*domain.Principal, error) {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		return nil, domain.ErrInvalidCredentials
	}

	p, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			if s.dummyHash != nil {
				_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret))
			}
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(secret)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return p, nil
}

// IssueToken signs a token with p's display name and current roles.
func (s *AuthService) IssueToken(ctx context.Context, p *domain.Principal) (domain.Token, error) {
	if p == nil {
		return domain.Token{}, errors.New("issue token: nil principal")
	}
	if err := ctx.Err(); err != nil {
		return domain.Token{}, err
	}
	return s.tokens.Issue(p)
}

func (s *AuthService) Login(ctx context.Context, identifier, secret string) (domain.Token, *domain.Principal, error) {
	p, err := s.VerifyCredentials(ctx, identifier, secret)
	if err != nil {
		return domain.Token{}, nil, err
	}

	tkn, err := s.IssueToken(ctx, p)
	if err != nil {
		return domain.Token{}, nil, err
	}

	s.log.Info().Str("user", p.UserName).Strs("roles", p.Roles).Msg("token issued")
	return tkn, p, nil
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Principal, error) {
	if strings.TrimSpace(in.UserName) == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	roles, err := normalizeRoles(in.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	p := &domain.Principal{
		ID:           uuid.NewString(),
		UserName:     strings.TrimSpace(in.UserName),
		Email:        strings.TrimSpace(in.Email),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user", created.UserName).Strs("roles", created.Roles).Msg("principal registered")
	return created, nil
}

func (s *AuthService) AssignRoles(ctx context.Context, principalID string, roles ...string) error {
	if len(roles) == 0 {
		return domain.ErrInvalidRole
	}
	normalized, err := normalizeRoles(roles)
	if err != nil {
		return err
	}
	return s.repo.AssignRoles(ctx, principalID, normalized...)
}

// normalizeRoles defaults to User, rejects unknown names and drops duplicates.
func normalizeRoles(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return []string{domain.RoleUser}, nil
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if !domain.IsKnownRole(r) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, r)
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
