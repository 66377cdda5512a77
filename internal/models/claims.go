package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the identity carried by a session token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}
