// Package otp issues short-lived numeric codes bound to an email address.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dtroode/identity-server/internal/cache"
	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
)

const (
	minCode = 100_000
	maxCode = 999_999
)

var codeRange = big.NewInt(maxCode - minCode + 1)

// Issuer stores codes in the cache under otp:{email} and invalidates a code
// after maxAttempts failed verifications.
type Issuer struct {
	cache       model.Cache
	logger      *logger.Logger
	maxAttempts int
	attemptsTTL time.Duration
}

var _ model.OtpIssuer = (*Issuer)(nil)

// NewIssuer creates an Issuer. attemptsTTL bounds how long failed attempts
// are remembered and must cover the longest code lifetime in use.
func NewIssuer(c model.Cache, maxAttempts int, attemptsTTL time.Duration, logger *logger.Logger) *Issuer {
	return &Issuer{
		cache:       c,
		logger:      logger,
		maxAttempts: maxAttempts,
		attemptsTTL: attemptsTTL,
	}
}

// Generate stores a fresh six-digit code and resets the attempt counter.
func (i *Issuer) Generate(ctx context.Context, email string, ttl time.Duration) (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+minCode)

	if err := cache.SetJSON(ctx, i.cache, cache.OtpKey(email), code, ttl); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	if err := i.cache.Delete(ctx, cache.OtpAttemptsKey(email)); err != nil {
		return "", fmt.Errorf("failed to reset otp attempts: %w", err)
	}

	return code, nil
}

// Verify reports whether code matches the stored one. A match leaves the code
// in place until Consume. A mismatch counts towards the attempt limit.
func (i *Issuer) Verify(ctx context.Context, email, code string) (bool, error) {
	stored, err := cache.GetJSON[string](ctx, i.cache, cache.OtpKey(email))
	if errors.Is(err, model.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load otp: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		return true, nil
	}

	attempts, err := i.cache.Incr(ctx, cache.OtpAttemptsKey(email), i.attemptsTTL)
	if err != nil {
		return false, fmt.Errorf("failed to count otp attempt: %w", err)
	}

	if attempts >= int64(i.maxAttempts) {
		i.logger.Warn("OTP issuer: attempt limit reached, invalidating code",
			"email", email,
			"attempts", attempts)
		if err := i.cache.Delete(ctx, cache.OtpKey(email)); err != nil {
			return false, fmt.Errorf("failed to invalidate otp: %w", err)
		}
	}

	return false, nil
}

// Consume deletes the code and its attempt counter.
func (i *Issuer) Consume(ctx context.Context, email string) error {
	if err := i.cache.Delete(ctx, cache.OtpKey(email)); err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if err := i.cache.Delete(ctx, cache.OtpAttemptsKey(email)); err != nil {
		i.logger.Error("OTP issuer: failed to clear attempts", "email", email, "error", err)
	}
	return nil
}
