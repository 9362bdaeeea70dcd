package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims is the access token payload. Subject carries the user id as a string.
type AppClaims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}
