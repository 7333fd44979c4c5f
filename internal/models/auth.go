package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access-token payload supplied by the identity
// provider. This service verifies tokens; issuing them lives elsewhere.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	PublicID string   `json:"public_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	jwt.RegisteredClaims
}
