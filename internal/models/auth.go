package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an administrator.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID           string   `json:"id"`
	UniversityID string   `json:"universityId"`
	Email        string   `json:"email"`
	FullName     string   `json:"fullName"`
	Role         UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	UniversityID string   `json:"university_id"`
	Role         UserRole `json:"role"`
	Email        string   `json:"email"`
	jwt.RegisteredClaims
}
