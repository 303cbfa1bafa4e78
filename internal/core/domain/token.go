package domain

import "time"

// Token is a signed bearer credential handed to a client after login.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is what a verified token asserts about its bearer.
//
// Roles reflect the principal at issuance time. They are not re-checked
// against the identity store while the token is valid.
type Claims struct {
	Name      string
	Roles     []string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasAnyRole reports whether the claims carry at least one of roles.
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
