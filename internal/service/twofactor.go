package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
)

// TwoFactorEngine is the TOTP engine plus secret sealing and backup code
// bookkeeping.
type TwoFactorEngine interface {
	model.TotpEngine
	HashBackupCodes(codes []string) (string, error)
	ConsumeBackupCode(hashedCodes, code string) (string, bool, error)
	SealSecret(secret string) (string, error)
	OpenSecret(sealed string) (string, error)
}

// TwoFactor enrolls, confirms and removes the TOTP second factor.
type TwoFactor struct {
	userStore model.UserStore
	engine    TwoFactorEngine
	clock     clock.Clock
	logger    *logger.Logger
}

var _ SecondFactorVerifier = (*TwoFactor)(nil)

func NewTwoFactor(userStore model.UserStore, engine TwoFactorEngine, clk clock.Clock, logger *logger.Logger) *TwoFactor {
	return &TwoFactor{
		userStore: userStore,
		engine:    engine,
		clock:     clk,
		logger:    logger,
	}
}

// Setup generates a new secret and backup codes. The factor stays disabled
// until Confirm succeeds. Plaintext backup codes are returned only here.
func (s *TwoFactor) Setup(ctx context.Context, userID uuid.UUID) (model.TwoFactorSetup, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return model.TwoFactorSetup{}, err
	}

	if user.TwoFactorEnabled {
		return model.TwoFactorSetup{}, apierrors.NewErrInvalidArgument("twoFactor", "is already enabled")
	}

	secret, err := s.engine.GenerateSecretKey()
	if err != nil {
		return model.TwoFactorSetup{}, apierrors.NewErrInternal(err)
	}

	sealed, err := s.engine.SealSecret(secret)
	if err != nil {
		return model.TwoFactorSetup{}, apierrors.NewErrInternal(fmt.Errorf("failed to seal secret: %w", err))
	}

	codes, err := s.engine.GenerateBackupCodes()
	if err != nil {
		return model.TwoFactorSetup{}, apierrors.NewErrInternal(err)
	}

	hashed, err := s.engine.HashBackupCodes(codes)
	if err != nil {
		return model.TwoFactorSetup{}, apierrors.NewErrInternal(err)
	}

	user.TwoFactorSecret = &sealed
	user.HashedBackupCodes = &hashed
	user.TwoFactorEnabled = false

	if err := s.save(ctx, user); err != nil {
		return model.TwoFactorSetup{}, err
	}

	s.logger.Info("Two-factor service: setup started", "user_id", user.ID)

	return model.TwoFactorSetup{
		UserID:          user.ID,
		Secret:          secret,
		ProvisioningURI: s.engine.ProvisioningURI(user.Email, secret),
		BackupCodes:     codes,
	}, nil
}

// Confirm enables the factor after the user proves the authenticator works.
func (s *TwoFactor) Confirm(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.TwoFactorSecret == nil {
		return apierrors.NewErrInvalidArgument("code", "two-factor setup has not been started")
	}

	secret, err := s.engine.OpenSecret(*user.TwoFactorSecret)
	if err != nil {
		return apierrors.NewErrInternal(fmt.Errorf("failed to open secret: %w", err))
	}

	if !s.engine.ValidateTotp(secret, code) {
		s.logger.Info("Two-factor service: confirmation code rejected", "user_id", user.ID)
		return apierrors.NewErrUnauthorized("Invalid two-factor code")
	}

	user.TwoFactorEnabled = true
	if err := s.save(ctx, user); err != nil {
		return err
	}

	s.logger.Info("Two-factor service: enabled", "user_id", user.ID)

	return nil
}

// Disable removes the factor. A current TOTP or an unused backup code is
// required.
func (s *TwoFactor) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.TwoFactorEnabled {
		return apierrors.NewErrInvalidArgument("twoFactor", "is not enabled")
	}

	ok, err := s.VerifyLoginCode(ctx, user, code)
	if err != nil {
		return apierrors.NewErrInternal(err)
	}
	if !ok {
		return apierrors.NewErrUnauthorized("Invalid two-factor code")
	}

	// VerifyLoginCode may have persisted a consumed backup code.
	user, err = s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	user.TwoFactorEnabled = false
	user.TwoFactorSecret = nil
	user.HashedBackupCodes = nil

	if err := s.save(ctx, user); err != nil {
		return err
	}

	s.logger.Info("Two-factor service: disabled", "user_id", user.ID)

	return nil
}

// VerifyLoginCode accepts a TOTP for the user's secret or consumes one of the
// backup codes. A backup code is spent with a conditional write, so two
// logins racing on the same code cannot both succeed.
func (s *TwoFactor) VerifyLoginCode(ctx context.Context, user model.User, code string) (bool, error) {
	if user.TwoFactorSecret == nil {
		return false, nil
	}

	secret, err := s.engine.OpenSecret(*user.TwoFactorSecret)
	if err != nil {
		return false, fmt.Errorf("failed to open secret: %w", err)
	}

	if s.engine.ValidateTotp(secret, code) {
		return true, nil
	}

	if user.HashedBackupCodes == nil {
		return false, nil
	}

	remaining, ok, err := s.engine.ConsumeBackupCode(*user.HashedBackupCodes, code)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	replaced, err := s.userStore.ReplaceBackupCodes(ctx, user.ID, *user.HashedBackupCodes, remaining, s.clock.Now())
	if err != nil {
		s.logger.Error("Two-factor service: failed to consume backup code",
			"user_id", user.ID,
			"error", err)
		return false, apierrors.NewErrTransient("Failed to update user, try again later", err)
	}
	if !replaced {
		s.logger.Warn("Two-factor service: backup code already used concurrently", "user_id", user.ID)
		return false, nil
	}

	s.logger.Info("Two-factor service: backup code consumed", "user_id", user.ID)

	return true, nil
}

func (s *TwoFactor) loadUser(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apierrors.NewErrUnauthorized("User not found")
	}
	if err != nil {
		s.logger.Error("Two-factor service: failed to get user",
			"user_id", userID,
			"error", err)
		return model.User{}, apierrors.NewErrTransient("Failed to load user, try again later", err)
	}
	return user, nil
}

func (s *TwoFactor) save(ctx context.Context, user model.User) error {
	now := s.clock.Now()
	user.UpdatedAt = &now
	user.UpdatedBy = &user.Email

	if err := s.userStore.Update(ctx, user); err != nil {
		s.logger.Error("Two-factor service: failed to update user",
			"user_id", user.ID,
			"error", err)
		return apierrors.NewErrTransient("Failed to update user, try again later", err)
	}
	return nil
}
