package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/islandman/hotel-listing/internal/api/metrics"
	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

// Context keys set by Auth.
const (
	ContextKeyName   = "name"
	ContextKeyRoles  = "roles"
	ContextKeyClaims = "claims"
)

// Auth validates the bearer token and injects its claims into the context.
// The reason a token was rejected is logged, never returned.
func Auth(verifier ports.TokenVerifier, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				metrics.TokenRejectionsTotal.Inc()
				log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token rejected")
				return domain.ErrTokenInvalid
			}

			c.Set(ContextKeyName, claims.Name)
			c.Set(ContextKeyRoles, claims.Roles)
			c.Set(ContextKeyClaims, claims)

			return next(c)
		}
	}
}

// ClaimsFrom returns the claims injected by Auth, or nil.
func ClaimsFrom(c echo.Context) *domain.Claims {
	claims, _ := c.Get(ContextKeyClaims).(*domain.Claims)
	return claims
}
