package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/islandman/hotel-listing/internal/core/domain"
)

const defaultTokenLifetime = 15 * time.Minute

// TokenConfig holds the signing settings read once at startup.
type TokenConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	Lifetime   time.Duration
}

// TokenManager issues and verifies HS256 bearer tokens. It keeps no
// per-token state and is immutable after construction, so one instance is
// shared by every request.
type TokenManager struct {
	key      []byte
	issuer   string
	audience string
	lifetime time.Duration
	now      func() time.Time
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces time.Now, for tests that need to move past expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

type tokenClaims struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// NewTokenManager fails with domain.ErrMissingSigningKey when no key is set.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, domain.ErrMissingSigningKey
	}
	lifetime := cfg.Lifetime
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	m := &TokenManager{
		key:      key,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token carrying p's name and current roles.
func (m *TokenManager) Issue(p *domain.Principal) (domain.Token, error) {
	issuedAt := jwt.NewNumericDate(m.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(m.lifetime))

	claims := tokenClaims{
		Name:  p.UserName,
		Roles: append([]string(nil), p.Roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  issuedAt,
			NotBefore: issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return domain.Token{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.Token{
		Value:     signed,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt.Time,
	}, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry. Every
// failure wraps domain.ErrTokenInvalid.
func (m *TokenManager) Verify(raw string) (*domain.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	var claims tokenClaims
	tkn, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
	}
	if !tkn.Valid {
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.Claims{
		Name:     claims.Name,
		Roles:    claims.Roles,
		Issuer:   claims.Issuer,
		Audience: []string(claims.Audience),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
