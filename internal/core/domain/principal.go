package domain

import (
	"strings"
	"time"
)

const (
	RoleUser          = "User"
	RoleAdministrator = "Administrator"
)

// Roles lists the built-in roles seeded at storage initialisation.
var Roles = []string{RoleUser, RoleAdministrator}

// IsKnownRole reports whether name is one of the built-in roles.
func IsKnownRole(name string) bool {
	for _, r := range Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Principal models an authenticable identity.
type Principal struct {
	ID           string    `json:"id"`
	UserName     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Normalize returns the case-folded form used for unique lookups.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
