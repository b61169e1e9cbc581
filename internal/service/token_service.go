package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/cache"
	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
)

const (
	msgInvalidRefreshToken = "Invalid refresh token"
	msgInvalidOrExpired    = "Invalid or expired refresh token"
	msgInvalidExpiration   = "Invalid token expiration"
	msgLoginAgain          = "Failed to refresh token. Please login again."
)

// TokenService issues token pairs and rotates refresh tokens. The latest
// refresh token of every user lives in the cache under refresh-token:{userId};
// only that token can be rotated, so each login or rotation revokes the
// previous one.
type TokenService struct {
	manager    model.TokenManager
	cache      model.Cache
	clock      clock.Clock
	logger     *logger.Logger
	refreshTTL time.Duration
}

func NewTokenService(manager model.TokenManager, c model.Cache, clk clock.Clock, refreshTTL time.Duration, logger *logger.Logger) *TokenService {
	return &TokenService{
		manager:    manager,
		cache:      c,
		clock:      clk,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Issue creates a fresh pair and records the refresh token as the user's only
// live session. A cache failure is logged and does not fail the login.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, email string) (model.TokenPair, error) {
	access, err := s.manager.GenerateAccessToken(userID, email)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, err := s.manager.GenerateRefreshToken(userID, email, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}

	if err := cache.SetJSON(ctx, s.cache, cache.RefreshTokenKey(userID), refresh, s.refreshTTL); err != nil {
		s.logger.Error("Token service: failed to store refresh token, session is not revocable",
			"user_id", userID,
			"error", err)
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates presented against the cached token and rotates both
// tokens. The new refresh token keeps the absolute expiry of the old one.
func (s *TokenService) Refresh(ctx context.Context, presented string) (model.TokenPair, error) {
	s.logger.Debug("Token service: refreshing token")

	claims, err := s.manager.ParseRefreshToken(presented)
	if err != nil {
		s.logger.Info("Token service: refresh token rejected", "error", err)
		return model.TokenPair{}, apierrors.NewErrUnauthorized(msgInvalidRefreshToken)
	}

	key := cache.RefreshTokenKey(claims.UserID)

	stored, err := cache.GetJSON[string](ctx, s.cache, key)
	if errors.Is(err, model.ErrCacheMiss) {
		s.logger.Info("Token service: no live session", "user_id", claims.UserID)
		return model.TokenPair{}, apierrors.NewErrUnauthorized(msgInvalidOrExpired)
	}
	if err != nil {
		s.logger.Error("Token service: failed to load refresh token",
			"user_id", claims.UserID,
			"error", err)
		return model.TokenPair{}, apierrors.NewErrTransient(msgLoginAgain, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		s.logger.Warn("Token service: stale refresh token presented",
			"user_id", claims.UserID)
		return model.TokenPair{}, apierrors.NewErrUnauthorized(msgInvalidOrExpired)
	}

	remaining := claims.ExpiresAt.Sub(s.clock.Now())
	if remaining <= 0 {
		return model.TokenPair{}, apierrors.NewErrUnauthorized(msgInvalidExpiration)
	}

	access, err := s.manager.GenerateAccessToken(claims.UserID, claims.Email)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue new access: %w", err)
	}

	refresh, err := s.manager.GenerateRefreshToken(claims.UserID, claims.Email, remaining)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue new refresh: %w", err)
	}

	swapped, err := cache.CompareAndSwapJSON(ctx, s.cache, key, presented, refresh, remaining)
	if err != nil {
		s.logger.Error("Token service: failed to store rotated refresh token",
			"user_id", claims.UserID,
			"error", err)
		return model.TokenPair{}, apierrors.NewErrTransient(msgLoginAgain, err)
	}
	if !swapped {
		s.logger.Warn("Token service: concurrent rotation detected",
			"user_id", claims.UserID)
		return model.TokenPair{}, apierrors.NewErrUnauthorized(msgInvalidOrExpired)
	}

	s.logger.Info("Token service: refresh token rotated",
		"user_id", claims.UserID,
		"remaining", remaining.String())

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Revoke ends the session the refresh token belongs to. Presenting a token
// that is no longer live is a no-op.
func (s *TokenService) Revoke(ctx context.Context, presented string) error {
	claims, err := s.manager.ParseRefreshToken(presented)
	if err != nil {
		return apierrors.NewErrUnauthorized(msgInvalidRefreshToken)
	}

	key := cache.RefreshTokenKey(claims.UserID)

	stored, err := cache.GetJSON[string](ctx, s.cache, key)
	if errors.Is(err, model.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return apierrors.NewErrTransient("Failed to revoke session", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return nil
	}

	if err := s.cache.Delete(ctx, key); err != nil {
		return apierrors.NewErrTransient("Failed to revoke session", err)
	}

	s.logger.Info("Token service: session revoked", "user_id", claims.UserID)

	return nil
}

// Authenticate validates an access token.
func (s *TokenService) Authenticate(_ context.Context, accessToken string) (model.TokenClaims, error) {
	claims, err := s.manager.ParseAccessToken(accessToken)
	if err != nil {
		return model.TokenClaims{}, apierrors.NewErrUnauthorized("Invalid access token")
	}
	return claims, nil
}
