package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/config"
	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
	"github.com/dtroode/identity-server/internal/validation"
)

// SecondFactorVerifier checks the login code of a user with 2FA enabled.
type SecondFactorVerifier interface {
	VerifyLoginCode(ctx context.Context, user model.User, code string) (bool, error)
}

// Auth implements password login with failed-attempt lockout.
type Auth struct {
	userStore    model.UserStore
	hasher       model.Hasher
	tokenService *TokenService
	secondFactor SecondFactorVerifier
	validator    *validation.Validator
	clock        clock.Clock
	logger       *logger.Logger
	lockout      config.Lockout

	dummyOnce sync.Once
	dummyHash string
}

func NewAuth(
	userStore model.UserStore,
	hasher model.Hasher,
	tokenService *TokenService,
	secondFactor SecondFactorVerifier,
	validator *validation.Validator,
	clk clock.Clock,
	lockout config.Lockout,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		hasher:       hasher,
		tokenService: tokenService,
		secondFactor: secondFactor,
		validator:    validator,
		clock:        clk,
		lockout:      lockout,
		logger:       logger,
	}
}

// Login authenticates email and password and issues a token pair.
//
// Unknown emails and wrong passwords produce the same InvalidCredentials
// outcome. A locked account is rejected before the password is checked. The
// failed-attempt counter is only written after the password decision.
func (a *Auth) Login(ctx context.Context, req model.LoginRequest) (model.LoginResult, error) {
	a.logger.Debug("Auth service: starting login", "email", req.Email)

	if err := a.validator.Struct(req); err != nil {
		return model.LoginResult{}, err
	}

	user, err := a.userStore.FindByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrNotFound) {
		a.burnHash(req.Password)
		a.logger.Info("Auth service: login for unknown email", "email", req.Email)
		return model.LoginResult{}, apierrors.NewErrInvalidCredentials()
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user by email",
			"email", req.Email,
			"error", err)
		return model.LoginResult{}, apierrors.NewErrTransient("Failed to sign in, try again later", err)
	}

	now := a.clock.Now()

	if minutes, locked := user.LockRemaining(now); locked {
		a.logger.Info("Auth service: login rejected, account locked",
			"user_id", user.ID,
			"remaining_minutes", minutes)
		return model.LoginResult{}, apierrors.NewErrAccountLocked(minutes)
	}

	if !a.hasher.Verify(user.PasswordHash, req.Password) {
		return model.LoginResult{}, a.recordFailure(ctx, user, now)
	}

	if user.TwoFactorEnabled {
		if req.SecondFactorCode == "" {
			a.logger.Info("Auth service: second factor required", "user_id", user.ID)
			return model.LoginResult{}, apierrors.NewErrSecondFactorRequired()
		}

		ok, err := a.secondFactor.VerifyLoginCode(ctx, user, req.SecondFactorCode)
		if err != nil {
			a.logger.Error("Auth service: failed to verify second factor",
				"user_id", user.ID,
				"error", err)
			return model.LoginResult{}, apierrors.NewErrTransient("Failed to sign in, try again later", err)
		}
		if !ok {
			return model.LoginResult{}, a.recordFailure(ctx, user, now)
		}
	}

	if user.HasLockoutState() {
		if err := a.userStore.ResetFailedLogins(ctx, user.ID, now); err != nil {
			a.logger.Error("Auth service: failed to reset lockout state",
				"user_id", user.ID,
				"error", err)
			return model.LoginResult{}, apierrors.NewErrTransient("Failed to sign in, try again later", err)
		}
	}

	pair, err := a.tokenService.Issue(ctx, user.ID, user.Email)
	if err != nil {
		a.logger.Error("Auth service: failed to issue tokens",
			"user_id", user.ID,
			"error", err)
		return model.LoginResult{}, apierrors.NewErrInternal(err)
	}

	a.logger.Info("Auth service: login succeeded",
		"user_id", user.ID,
		"role", user.RoleName)

	return model.LoginResult{TokenPair: pair, Role: user.RoleName}, nil
}

func (a *Auth) recordFailure(ctx context.Context, user model.User, now time.Time) error {
	state, err := a.userStore.RecordFailedLogin(ctx, user.ID, now, a.lockout.MaxFailedAttempts, now.Add(a.lockout.Duration))
	if err != nil {
		a.logger.Error("Auth service: failed to record failed login",
			"user_id", user.ID,
			"error", err)
		return apierrors.NewErrTransient("Failed to sign in, try again later", err)
	}

	if state.IsAccountLocked {
		a.logger.Warn("Auth service: account locked after failed attempts",
			"user_id", user.ID,
			"attempts", state.FailedLoginAttempts,
			"locked_until", state.LockedUntil)
	} else {
		a.logger.Info("Auth service: invalid password",
			"user_id", user.ID,
			"attempts", state.FailedLoginAttempts)
	}

	return apierrors.NewErrInvalidCredentials()
}

// burnHash spends one hash verification so unknown emails take as long as
// wrong passwords.
func (a *Auth) burnHash(password string) {
	a.dummyOnce.Do(func() {
		h, err := a.hasher.Hash("identity-server-timing-equalizer")
		if err == nil {
			a.dummyHash = h
		}
	})
	if a.dummyHash != "" {
		a.hasher.Verify(a.dummyHash, password)
	}
}
