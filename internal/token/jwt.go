package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/config"
	"github.com/dtroode/identity-server/internal/model"
)

var (
	// ErrTokenTypeMismatch is returned when a token is presented for the wrong use.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	// ErrInvalidClaims is returned when required claims are absent.
	ErrInvalidClaims = errors.New("invalid token claims")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Claims represents JWT claims with token type, user ID and email.
type Claims struct {
	jwt.RegisteredClaims
	Email     string    `json:"email"`
	TokenType string    `json:"tokenType"`
	UserID    uuid.UUID `json:"userId"`
}

// JWT implements TokenManager backed by HMAC-SHA512.
type JWT struct {
	clock      clock.Clock
	parser     *jwt.Parser
	issuer     string
	audience   string
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWT creates a new JWT token manager from the signing configuration.
func NewJWT(cfg config.JWT, clk clock.Clock) *JWT {
	return &JWT{
		clock:      clk,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		secretKey:  []byte(cfg.SecretKey),
		accessTTL:  cfg.AccessTTL(),
		refreshTTL: cfg.RefreshTTL(),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(clk.Now),
		),
	}
}

var _ model.TokenManager = (*JWT)(nil)

// GenerateAccessToken creates an access token with the configured lifetime.
func (j *JWT) GenerateAccessToken(userID uuid.UUID, email string) (string, error) {
	token, err := j.sign(userID, email, typeAccess, j.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken creates a refresh token. A non-positive ttl selects the
// configured default lifetime.
func (j *JWT) GenerateRefreshToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = j.refreshTTL
	}
	token, err := j.sign(userID, email, typeRefresh, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, nil
}

// ParseAccessToken validates an access token and returns its claims.
func (j *JWT) ParseAccessToken(tokenString string) (model.TokenClaims, error) {
	return j.parse(tokenString, typeAccess)
}

// ParseRefreshToken validates a refresh token and returns its claims.
func (j *JWT) ParseRefreshToken(tokenString string) (model.TokenClaims, error) {
	return j.parse(tokenString, typeRefresh)
}

func (j *JWT) sign(userID uuid.UUID, email, tokenType string, ttl time.Duration) (string, error) {
	now := j.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
	})

	return token.SignedString(j.secretKey)
}

func (j *JWT) parse(tokenString, expectedType string) (model.TokenClaims, error) {
	claims := &Claims{}
	token, err := j.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return model.TokenClaims{}, fmt.Errorf("failed to parse %s token: %w", expectedType, err)
	}
	if !token.Valid {
		return model.TokenClaims{}, fmt.Errorf("%s token is invalid", expectedType)
	}
	if claims.TokenType != expectedType {
		return model.TokenClaims{}, fmt.Errorf("%w: %s", ErrTokenTypeMismatch, claims.TokenType)
	}
	if claims.UserID == uuid.Nil || claims.Email == "" || claims.ExpiresAt == nil {
		return model.TokenClaims{}, ErrInvalidClaims
	}

	out := model.TokenClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
