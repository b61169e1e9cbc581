package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/cache"
	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/mocks"
	"github.com/dtroode/identity-server/internal/model"
	"github.com/dtroode/identity-server/internal/testutil"
)

func TestTokenService_RefreshPreservesAbsoluteExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewFake(testStart)
	mr, c := newTestRedis(t)
	svc, manager := newTestTokenService(t, clk, c)
	userID := uuid.New()

	first, err := svc.Issue(ctx, userID, testEmail)
	require.NoError(t, err)
	original, err := manager.ParseRefreshToken(first.RefreshToken)
	require.NoError(t, err)

	clk.Advance(3 * time.Hour)
	mr.FastForward(3 * time.Hour)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	rotated, err := manager.ParseRefreshToken(second.RefreshToken)
	require.NoError(t, err)
	assert.True(t, rotated.ExpiresAt.Equal(original.ExpiresAt))
	assert.Equal(t, userID, rotated.UserID)
	assert.Equal(t, testEmail, rotated.Email)

	access, err := manager.ParseAccessToken(second.AccessToken)
	require.NoError(t, err)
	assert.True(t, access.ExpiresAt.Equal(testStart.Add(3*time.Hour+time.Hour)))

	stored, err := cache.GetJSON[string](ctx, c, cache.RefreshTokenKey(userID))
	require.NoError(t, err)
	assert.Equal(t, second.RefreshToken, stored)
	assert.Equal(t, original.ExpiresAt.Sub(clk.Now()), mr.TTL(cache.RefreshTokenKey(userID)))
}

func TestTokenService_RefreshRejectsReplay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewFake(testStart)
	_, c := newTestRedis(t)
	svc, _ := newTestTokenService(t, clk, c)
	userID := uuid.New()

	first, err := svc.Issue(ctx, userID, testEmail)
	require.NoError(t, err)

	clk.Advance(time.Second)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, apierrors.ErrUnauthorized)
}

func TestTokenService_NewLoginRevokesPreviousSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewFake(testStart)
	_, c := newTestRedis(t)
	svc, _ := newTestTokenService(t, clk, c)
	userID := uuid.New()

	first, err := svc.Issue(ctx, userID, testEmail)
	require.NoError(t, err)

	clk.Advance(time.Second)

	_, err = svc.Issue(ctx, userID, testEmail)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, apierrors.ErrUnauthorized)
}

func TestTokenService_ConcurrentRefreshHasOneWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewFake(testStart)
	_, c := newTestRedis(t)
	svc, _ := newTestTokenService(t, clk, c)

	pair, err := svc.Issue(ctx, uuid.New(), testEmail)
	require.NoError(t, err)
	clk.Advance(time.Second)

	const workers = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestTokenService_RefreshFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	claims := model.TokenClaims{
		UserID:    userID,
		Email:     testEmail,
		IssuedAt:  testStart.Add(-time.Hour),
		ExpiresAt: testStart.Add(time.Hour),
	}
	key := cache.RefreshTokenKey(userID)
	storedPresented := []byte(`"presented"`)

	tests := []struct {
		name    string
		setup   func(manager *mocks.TokenManager, c *mocks.Cache)
		wantErr error
		message string
	}{
		{
			name: "malformed token",
			setup: func(manager *mocks.TokenManager, _ *mocks.Cache) {
				manager.On("ParseRefreshToken", "presented").Return(model.TokenClaims{}, assert.AnError).Once()
			},
			wantErr: apierrors.ErrUnauthorized,
			message: "Invalid refresh token",
		},
		{
			name: "no cached session",
			setup: func(manager *mocks.TokenManager, c *mocks.Cache) {
				manager.On("ParseRefreshToken", "presented").Return(claims, nil).Once()
				c.On("Get", mock.Anything, key).Return(nil, model.ErrCacheMiss).Once()
			},
			wantErr: apierrors.ErrUnauthorized,
			message: "Invalid or expired refresh token",
		},
		{
			name: "cache unavailable",
			setup: func(manager *mocks.TokenManager, c *mocks.Cache) {
				manager.On("ParseRefreshToken", "presented").Return(claims, nil).Once()
				c.On("Get", mock.Anything, key).Return(nil, assert.AnError).Once()
			},
			wantErr: apierrors.ErrTransient,
			message: "Failed to refresh token. Please login again.",
		},
		{
			name: "different cached token",
			setup: func(manager *mocks.TokenManager, c *mocks.Cache) {
				manager.On("ParseRefreshToken", "presented").Return(claims, nil).Once()
				c.On("Get", mock.Anything, key).Return([]byte(`"newer"`), nil).Once()
			},
			wantErr: apierrors.ErrUnauthorized,
			message: "Invalid or expired refresh token",
		},
		{
			name: "no remaining lifetime",
			setup: func(manager *mocks.TokenManager, c *mocks.Cache) {
				expired := claims
				expired.ExpiresAt = testStart
				manager.On("ParseRefreshToken", "presented").Return(expired, nil).Once()
				c.On("Get", mock.Anything, key).Return(storedPresented, nil).Once()
			},
			wantErr: apierrors.ErrUnauthorized,
			message: "Invalid token expiration",
		},
		{
			name: "final write fails",
			setup: func(manager *mocks.TokenManager, c *mocks.Cache) {
				manager.On("ParseRefreshToken", "presented").Return(claims, nil).Once()
				c.On("Get", mock.Anything, key).Return(storedPresented, nil).Once()
				manager.On("GenerateAccessToken", userID, testEmail).Return("access", nil).Once()
				manager.On("GenerateRefreshToken", userID, testEmail, time.Hour).Return("refresh", nil).Once()
				c.On("CompareAndSwap", mock.Anything, key, storedPresented, []byte(`"refresh"`), time.Hour).
					Return(false, assert.AnError).Once()
			},
			wantErr: apierrors.ErrTransient,
			message: "Failed to refresh token. Please login again.",
		},
		{
			name: "lost the race",
			setup: func(manager *mocks.TokenManager, c *mocks.Cache) {
				manager.On("ParseRefreshToken", "presented").Return(claims, nil).Once()
				c.On("Get", mock.Anything, key).Return(storedPresented, nil).Once()
				manager.On("GenerateAccessToken", userID, testEmail).Return("access", nil).Once()
				manager.On("GenerateRefreshToken", userID, testEmail, time.Hour).Return("refresh", nil).Once()
				c.On("CompareAndSwap", mock.Anything, key, storedPresented, []byte(`"refresh"`), time.Hour).
					Return(false, nil).Once()
			},
			wantErr: apierrors.ErrUnauthorized,
			message: "Invalid or expired refresh token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := mocks.NewTokenManager(t)
			c := mocks.NewCache(t)
			tt.setup(manager, c)

			svc := NewTokenService(manager, c, clock.NewFake(testStart), 7*24*time.Hour, testutil.MakeNoopLogger())

			_, err := svc.Refresh(ctx, "presented")
			require.ErrorIs(t, err, tt.wantErr)

			apiErr, ok := apierrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestTokenService_Revoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewFake(testStart)
	_, c := newTestRedis(t)
	svc, _ := newTestTokenService(t, clk, c)
	userID := uuid.New()

	pair, err := svc.Issue(ctx, userID, testEmail)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))

	exists, err := c.Exists(ctx, cache.RefreshTokenKey(userID))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, apierrors.ErrUnauthorized)

	err = svc.Revoke(ctx, "garbage")
	require.ErrorIs(t, err, apierrors.ErrUnauthorized)
}

func TestTokenService_RevokeKeepsNewerSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewFake(testStart)
	_, c := newTestRedis(t)
	svc, _ := newTestTokenService(t, clk, c)
	userID := uuid.New()

	old, err := svc.Issue(ctx, userID, testEmail)
	require.NoError(t, err)
	clk.Advance(time.Second)
	current, err := svc.Issue(ctx, userID, testEmail)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, old.RefreshToken))

	_, err = svc.Refresh(ctx, current.RefreshToken)
	require.NoError(t, err)
}

func TestTokenService_Authenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := clock.NewFake(testStart)
	_, c := newTestRedis(t)
	svc, _ := newTestTokenService(t, clk, c)
	userID := uuid.New()

	pair, err := svc.Issue(ctx, userID, testEmail)
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)

	_, err = svc.Authenticate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, apierrors.ErrUnauthorized)

	clk.Advance(time.Hour + time.Second)
	_, err = svc.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, apierrors.ErrUnauthorized)
}
