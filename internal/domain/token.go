package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// RememberClaims is the payload of the long-lived remember-me assertion. It
// carries identity only; it never grants access without a session.
type RememberClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Type   string `json:"type"`
}

const RememberTokenType = "remember"
