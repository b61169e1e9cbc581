package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenManager generates and validates access/refresh tokens.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID, email string) (string, error)
	// GenerateRefreshToken uses the default lifetime when ttl is not positive.
	GenerateRefreshToken(userID uuid.UUID, email string, ttl time.Duration) (string, error)
	ParseAccessToken(token string) (TokenClaims, error)
	ParseRefreshToken(token string) (TokenClaims, error)
}

// TokenClaims are the validated contents of a token.
type TokenClaims struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	Email     string
	UserID    uuid.UUID
}

// TokenPair is the result of a successful login or rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
