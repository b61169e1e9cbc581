// Package cache holds the key layout and JSON helpers shared by every
// component that stores values in the cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/identity-server/internal/model"
)

// PendingUserKey addresses a registration awaiting confirmation.
func PendingUserKey(email string) string {
	return "pending-user:" + email
}

// RefreshTokenKey addresses the single live refresh token of a user.
func RefreshTokenKey(userID uuid.UUID) string {
	return "refresh-token:" + userID.String()
}

// OtpKey addresses the one-time code bound to an email.
func OtpKey(email string) string {
	return "otp:" + email
}

// OtpAttemptsKey addresses the failed verification counter of an OTP.
func OtpAttemptsKey(email string) string {
	return "otp-attempts:" + email
}

// Encode serializes a value for storage.
func Encode[T any](value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return data, nil
}

// GetJSON loads and decodes a value. It returns model.ErrCacheMiss when absent.
func GetJSON[T any](ctx context.Context, c model.Cache, key string) (T, error) {
	var out T

	data, err := c.Get(ctx, key)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal cache value %q: %w", key, err)
	}
	return out, nil
}

// SetJSON encodes and stores a value with ttl.
func SetJSON[T any](ctx context.Context, c model.Cache, key string, value T, ttl time.Duration) error {
	data, err := Encode(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

// CompareAndSwapJSON replaces old with value only if the stored value still equals old.
func CompareAndSwapJSON[T any](ctx context.Context, c model.Cache, key string, old, value T, ttl time.Duration) (bool, error) {
	oldData, err := Encode(old)
	if err != nil {
		return false, err
	}
	newData, err := Encode(value)
	if err != nil {
		return false, err
	}
	return c.CompareAndSwap(ctx, key, oldData, newData, ttl)
}
