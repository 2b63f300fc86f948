package models

import "github.com/golang-jwt/jwt"

// Roles carried in access tokens.
const (
	RoleBooker = "booker"
	RoleTalent = "talent"
	RoleAdmin  = "admin"
)

// Claims are the access token claims issued by the auth service.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}
