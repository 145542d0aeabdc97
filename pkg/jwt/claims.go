package jwt

import "github.com/golang-jwt/jwt/v5"

// ViewerClaims identifies the caller of the public API. Subject is the user id.
type ViewerClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

// IsAdmin reports whether the claims grant administrative access.
func (c *ViewerClaims) IsAdmin() bool {
	return Role(c.Role) == RoleAdmin
}
