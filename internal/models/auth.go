package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role carried by session tokens.
const RoleAdmin = "ADMIN"

// LoginRequest holds the admin password.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued session token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// AdminClaims is the JWT payload of an admin session.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
