package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/islandman/hotel-listing/internal/api/metrics"
	"github.com/islandman/hotel-listing/internal/api/middleware"
	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

// AccountHandler serves registration, login and role assignment.
type AccountHandler struct {
	auth ports.AuthService
	log  zerolog.Logger
}

func NewAccountHandler(auth ports.AuthService, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{auth: auth, log: log}
}

// Register creates a principal holding the User role.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := h.auth.Register(c.Request().Context(), ports.RegisterInput{
		UserName:  req.UserName,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     []string{domain.RoleUser},
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, p)
}

// Login verifies credentials and returns a bearer token. Unknown users and
// wrong passwords get the same 401.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.identifier() == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email or username is required")
	}

	token, _, err := h.auth.Login(c.Request().Context(), req.identifier(), req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, tokenResponse{
		Token:     token.Value,
		TokenType: "Bearer",
		ExpiresAt: token.ExpiresAt,
	})
}

// AssignRoles grants roles to the principal in the path. Administrator only.
func (h *AccountHandler) AssignRoles(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}

	var req assignRolesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.auth.AssignRoles(c.Request().Context(), id, req.Roles...); err != nil {
		return err
	}

	ev := h.log.Info().Str("principal_id", id).Strs("roles", req.Roles)
	if claims := middleware.ClaimsFrom(c); claims != nil {
		ev = ev.Str("granted_by", claims.Name)
	}
	ev.Msg("roles assigned")
	return c.NoContent(http.StatusNoContent)
}
