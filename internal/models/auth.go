package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the claims carried by a session token: the user identity
// and role, plus the registered claims (jti, iat, nbf, exp, sub).
type TokenClaims struct {
	UserID int  `json:"user_id"`
	Role   Role `json:"role"`
	jwt.RegisteredClaims
}
