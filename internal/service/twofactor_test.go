package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/mocks"
	"github.com/dtroode/identity-server/internal/model"
	"github.com/dtroode/identity-server/internal/testutil"
)

func TestTwoFactor_SetupAndConfirm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newAuthFixture(t)

	setup, err := f.twoFactor.Setup(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, setup.UserID)
	assert.Len(t, setup.BackupCodes, 10)
	assert.True(t, strings.HasPrefix(setup.ProvisioningURI, "otpauth://totp/"))
	assert.Contains(t, setup.ProvisioningURI, "issuer=PharmaApp")

	u := f.store.get(t, f.user.ID)
	assert.False(t, u.TwoFactorEnabled)
	require.NotNil(t, u.HashedBackupCodes)
	require.NotNil(t, u.UpdatedBy)
	assert.Equal(t, testEmail, *u.UpdatedBy)

	var hashes []string
	require.NoError(t, json.Unmarshal([]byte(*u.HashedBackupCodes), &hashes))
	assert.Len(t, hashes, 10)
	for i, h := range hashes {
		assert.NotEqual(t, setup.BackupCodes[i], h)
	}

	err = f.twoFactor.Confirm(ctx, f.user.ID, "000000")
	require.ErrorIs(t, err, apierrors.ErrUnauthorized)
	assert.False(t, f.store.get(t, f.user.ID).TwoFactorEnabled)

	code, err := f.engine.GenerateTotp(setup.Secret)
	require.NoError(t, err)
	require.NoError(t, f.twoFactor.Confirm(ctx, f.user.ID, code))
	assert.True(t, f.store.get(t, f.user.ID).TwoFactorEnabled)

	_, err = f.twoFactor.Setup(ctx, f.user.ID)
	require.ErrorIs(t, err, apierrors.ErrValidation)
}

func TestTwoFactor_ConfirmWithoutSetup(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)

	err := f.twoFactor.Confirm(context.Background(), f.user.ID, "123456")
	require.ErrorIs(t, err, apierrors.ErrValidation)
}

func TestTwoFactor_ConfirmAcceptsAdjacentStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newAuthFixture(t)

	setup, err := f.twoFactor.Setup(ctx, f.user.ID)
	require.NoError(t, err)

	code, err := f.engine.GenerateTotp(setup.Secret)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	require.NoError(t, f.twoFactor.Confirm(ctx, f.user.ID, code))
}

func TestTwoFactor_Disable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("with totp", func(t *testing.T) {
		f := newAuthFixture(t)
		setup := enrollTwoFactor(t, f)

		err := f.twoFactor.Disable(ctx, f.user.ID, "000000")
		require.ErrorIs(t, err, apierrors.ErrUnauthorized)

		code, err := f.engine.GenerateTotp(setup.Secret)
		require.NoError(t, err)
		require.NoError(t, f.twoFactor.Disable(ctx, f.user.ID, code))

		u := f.store.get(t, f.user.ID)
		assert.False(t, u.TwoFactorEnabled)
		assert.Nil(t, u.TwoFactorSecret)
		assert.Nil(t, u.HashedBackupCodes)

		_, err = f.login(testPassword)
		require.NoError(t, err)
	})

	t.Run("with backup code", func(t *testing.T) {
		f := newAuthFixture(t)
		setup := enrollTwoFactor(t, f)

		require.NoError(t, f.twoFactor.Disable(ctx, f.user.ID, setup.BackupCodes[0]))
		assert.False(t, f.store.get(t, f.user.ID).TwoFactorEnabled)
	})

	t.Run("not enabled", func(t *testing.T) {
		f := newAuthFixture(t)

		err := f.twoFactor.Disable(ctx, f.user.ID, "123456")
		require.ErrorIs(t, err, apierrors.ErrValidation)
	})
}

func TestTwoFactor_BackupCodeConsumption(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newAuthFixture(t)
	setup := enrollTwoFactor(t, f)

	ok, err := f.twoFactor.VerifyLoginCode(ctx, f.store.get(t, f.user.ID), setup.BackupCodes[5])
	require.NoError(t, err)
	require.True(t, ok)

	var hashes []string
	require.NoError(t, json.Unmarshal([]byte(*f.store.get(t, f.user.ID).HashedBackupCodes), &hashes))
	assert.Len(t, hashes, 9)

	ok, err = f.twoFactor.VerifyLoginCode(ctx, f.store.get(t, f.user.ID), setup.BackupCodes[5])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTwoFactor_BackupCodeSpentOnceUnderRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newAuthFixture(t)
	setup := enrollTwoFactor(t, f)
	snapshot := f.store.get(t, f.user.ID)

	const racers = 8
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.twoFactor.VerifyLoginCode(ctx, snapshot, setup.BackupCodes[2])
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	var hashes []string
	require.NoError(t, json.Unmarshal([]byte(*f.store.get(t, f.user.ID).HashedBackupCodes), &hashes))
	assert.Len(t, hashes, 9)
}

func TestTwoFactor_BackupCodeStaleSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newAuthFixture(t)
	setup := enrollTwoFactor(t, f)
	stale := f.store.get(t, f.user.ID)

	ok, err := f.twoFactor.VerifyLoginCode(ctx, stale, setup.BackupCodes[0])
	require.NoError(t, err)
	require.True(t, ok)

	// A second code from the same stale read loses: the stored set changed.
	ok, err = f.twoFactor.VerifyLoginCode(ctx, stale, setup.BackupCodes[1])
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.twoFactor.VerifyLoginCode(ctx, f.store.get(t, f.user.ID), setup.BackupCodes[1])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTwoFactor_BackupCodeWriteFails(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(testStart)
	engine := newTestEngine(t, clk, newTestHasher())

	secret, err := engine.GenerateSecretKey()
	require.NoError(t, err)
	sealed, err := engine.SealSecret(secret)
	require.NoError(t, err)
	hashed, err := engine.HashBackupCodes([]string{"1234-5678"})
	require.NoError(t, err)

	user := model.User{ID: uuid.New(), Email: testEmail, TwoFactorEnabled: true, TwoFactorSecret: &sealed, HashedBackupCodes: &hashed}

	store := mocks.NewUserStore(t)
	store.On("ReplaceBackupCodes", mock.Anything, user.ID, hashed, "[]", testStart).Return(false, assert.AnError).Once()

	svc := NewTwoFactor(store, engine, clk, testutil.MakeNoopLogger())
	ok, err := svc.VerifyLoginCode(context.Background(), user, "1234-5678")
	require.ErrorIs(t, err, apierrors.ErrTransient)
	assert.False(t, ok)
}

func TestTwoFactor_UserErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	id := uuid.New()
	clk := clock.NewFake(testStart)
	engine := newTestEngine(t, clk, newTestHasher())

	t.Run("unknown user", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("GetByID", mock.Anything, id).Return(model.User{}, model.ErrNotFound).Once()

		svc := NewTwoFactor(store, engine, clk, testutil.MakeNoopLogger())
		_, err := svc.Setup(ctx, id)
		require.ErrorIs(t, err, apierrors.ErrUnauthorized)
	})

	t.Run("store unavailable", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("GetByID", mock.Anything, id).Return(model.User{}, assert.AnError).Once()

		svc := NewTwoFactor(store, engine, clk, testutil.MakeNoopLogger())
		err := svc.Confirm(ctx, id, "123456")
		require.ErrorIs(t, err, apierrors.ErrTransient)
	})

	t.Run("update fails", func(t *testing.T) {
		store := mocks.NewUserStore(t)
		store.On("GetByID", mock.Anything, id).Return(model.User{ID: id, Email: testEmail}, nil).Once()
		store.On("Update", mock.Anything, mock.AnythingOfType("model.User")).Return(assert.AnError).Once()

		svc := NewTwoFactor(store, engine, clk, testutil.MakeNoopLogger())
		_, err := svc.Setup(ctx, id)
		require.ErrorIs(t, err, apierrors.ErrTransient)
	})
}
