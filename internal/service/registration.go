package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/cache"
	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/config"
	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
	"github.com/dtroode/identity-server/internal/validation"
)

const msgRegistrationFailed = "Failed to register, try again later"

// Registration stages new accounts in the cache and promotes them to durable
// users once the emailed code is confirmed.
type Registration struct {
	userStore model.UserStore
	roleStore model.RoleStore
	cache     model.Cache
	otp       model.OtpIssuer
	hasher    model.Hasher
	publisher model.Publisher
	validator *validation.Validator
	clock     clock.Clock
	logger    *logger.Logger
	cfg       config.Registration
}

func NewRegistration(
	userStore model.UserStore,
	roleStore model.RoleStore,
	c model.Cache,
	otp model.OtpIssuer,
	hasher model.Hasher,
	publisher model.Publisher,
	validator *validation.Validator,
	clk clock.Clock,
	cfg config.Registration,
	logger *logger.Logger,
) *Registration {
	return &Registration{
		userStore: userStore,
		roleStore: roleStore,
		cache:     c,
		otp:       otp,
		hasher:    hasher,
		publisher: publisher,
		validator: validator,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
	}
}

// Register stores a pending user and sends a confirmation code. No durable
// user exists until ValidateOtp succeeds.
func (r *Registration) Register(ctx context.Context, req model.RegisterRequest) error {
	r.logger.Debug("Registration service: starting registration", "email", req.Email)

	if err := r.validator.Struct(req); err != nil {
		return err
	}

	pendingKey := cache.PendingUserKey(req.Email)

	pending, err := r.cache.Exists(ctx, pendingKey)
	if err != nil {
		r.logger.Error("Registration service: failed to check pending user",
			"email", req.Email,
			"error", err)
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}
	if pending {
		return apierrors.NewErrAlreadyExists()
	}

	_, err = r.userStore.FindByEmail(ctx, req.Email)
	if err == nil {
		return apierrors.NewErrAlreadyExists()
	}
	if !errors.Is(err, model.ErrNotFound) {
		r.logger.Error("Registration service: failed to check existing user",
			"email", req.Email,
			"error", err)
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}

	role, err := r.roleStore.GetByID(ctx, r.cfg.DefaultRoleID)
	if err != nil {
		r.logger.Error("Registration service: failed to resolve default role",
			"role_id", r.cfg.DefaultRoleID,
			"error", err)
		if errors.Is(err, model.ErrNotFound) {
			return apierrors.NewErrInternal(fmt.Errorf("default role %d is missing: %w", r.cfg.DefaultRoleID, err))
		}
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}

	hash, err := r.hasher.Hash(req.Password)
	if err != nil {
		return apierrors.NewErrInternal(fmt.Errorf("failed to hash password: %w", err))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return apierrors.NewErrInternal(fmt.Errorf("failed to generate user id: %w", err))
	}

	user := model.PendingUser{
		ID:           id,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		RoleID:       role.ID,
	}

	if err := cache.SetJSON(ctx, r.cache, pendingKey, user, r.cfg.PendingUserTTL); err != nil {
		r.logger.Error("Registration service: failed to store pending user",
			"email", req.Email,
			"error", err)
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}

	if err := r.sendCode(ctx, req.Email); err != nil {
		return err
	}

	r.logger.Info("Registration service: pending user created",
		"email", req.Email,
		"user_id", id)

	return nil
}

// ValidateOtp confirms the code and persists the pending user. The code is
// spent only after the user is stored, so a failed write can be retried with
// the same code.
func (r *Registration) ValidateOtp(ctx context.Context, req model.ValidateOtpRequest) error {
	if err := r.validator.Struct(req); err != nil {
		return err
	}

	ok, err := r.otp.Verify(ctx, req.Email, req.Otp)
	if err != nil {
		r.logger.Error("Registration service: failed to verify otp",
			"email", req.Email,
			"error", err)
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}
	if !ok {
		r.logger.Info("Registration service: otp rejected", "email", req.Email)
		return apierrors.NewErrInvalidOrExpiredOtp()
	}

	pendingKey := cache.PendingUserKey(req.Email)

	pending, err := cache.GetJSON[model.PendingUser](ctx, r.cache, pendingKey)
	if errors.Is(err, model.ErrCacheMiss) {
		return apierrors.NewErrNoPendingRegistration()
	}
	if err != nil {
		r.logger.Error("Registration service: failed to load pending user",
			"email", req.Email,
			"error", err)
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}

	user, err := r.userStore.Add(ctx, pending.ToUser(r.clock.Now()))
	if errors.Is(err, model.ErrAlreadyExists) {
		return apierrors.NewErrAlreadyExists()
	}
	if err != nil {
		r.logger.Error("Registration service: failed to persist user",
			"email", req.Email,
			"error", err)
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}

	if err := r.otp.Consume(ctx, req.Email); err != nil {
		r.logger.Warn("Registration service: failed to consume otp",
			"email", req.Email,
			"error", err)
	}

	if err := r.cache.Delete(ctx, pendingKey); err != nil {
		r.logger.Warn("Registration service: failed to delete pending user",
			"email", req.Email,
			"error", err)
	}

	r.logger.Info("Registration service: user registered",
		"email", user.Email,
		"user_id", user.ID)

	return nil
}

// ResendOtp issues a new code for an email with a pending registration.
func (r *Registration) ResendOtp(ctx context.Context, req model.ResendOtpRequest) error {
	if err := r.validator.Struct(req); err != nil {
		return err
	}

	pending, err := r.cache.Exists(ctx, cache.PendingUserKey(req.Email))
	if err != nil {
		r.logger.Error("Registration service: failed to check pending user",
			"email", req.Email,
			"error", err)
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}
	if !pending {
		return apierrors.NewErrNoPendingRegistration()
	}

	return r.sendCode(ctx, req.Email)
}

// sendCode replaces the code for email. Delivery failures are logged only:
// the user can ask for another code.
func (r *Registration) sendCode(ctx context.Context, email string) error {
	code, err := r.otp.Generate(ctx, email, r.cfg.OtpTTL)
	if err != nil {
		r.logger.Error("Registration service: failed to generate otp",
			"email", email,
			"error", err)
		return apierrors.NewErrTransient(msgRegistrationFailed, err)
	}

	if err := r.publisher.Publish(ctx, email, code, r.cfg.OtpMessageTTL); err != nil {
		r.logger.Error("Registration service: failed to publish otp",
			"email", email,
			"error", err)
		return nil
	}

	r.logger.Debug("Registration service: otp published", "email", email)

	return nil
}
