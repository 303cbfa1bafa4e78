package handler

import "time"

type registerRequest struct {
	UserName  string `json:"username"   validate:"required,min=3,max=64"`
	Email     string `json:"email"      validate:"omitempty,email"`
	Password  string `json:"password"   validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=64"`
	LastName  string `json:"last_name"  validate:"max=64"`
}

// loginRequest accepts either the username or the e-mail address.
type loginRequest struct {
	Email    string `json:"email"`
	UserName string `json:"username"`
	Password string `json:"password" validate:"required"`
}

func (r loginRequest) identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.UserName
}

type assignRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=User Administrator"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}
