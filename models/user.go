package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the identity principal decoded from the bearer token. The
// service trusts TenantID from here for authorization and never re-derives
// it.
type UserClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	TenantID  string `json:"tenantId"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	jwt.RegisteredClaims
}
