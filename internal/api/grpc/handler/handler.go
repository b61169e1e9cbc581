package handler

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/identity-server/internal/api/grpc/identity"
	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/logger"
	"github.com/dtroode/identity-server/internal/model"
	"github.com/dtroode/identity-server/internal/validation"
)

// AuthService authenticates credentials.
type AuthService interface {
	Login(ctx context.Context, req model.LoginRequest) (model.LoginResult, error)
}

// TokenService rotates and revokes refresh tokens.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// RegistrationService runs the OTP-gated sign-up flow.
type RegistrationService interface {
	Register(ctx context.Context, req model.RegisterRequest) error
	ValidateOtp(ctx context.Context, req model.ValidateOtpRequest) error
	ResendOtp(ctx context.Context, req model.ResendOtpRequest) error
}

// TwoFactorService manages the TOTP second factor of the caller.
type TwoFactorService interface {
	Setup(ctx context.Context, userID uuid.UUID) (model.TwoFactorSetup, error)
	Confirm(ctx context.Context, userID uuid.UUID, code string) error
	Disable(ctx context.Context, userID uuid.UUID, code string) error
}

// Identity serves the identity.v1.Identity gRPC service.
type Identity struct {
	authService         AuthService
	tokenService        TokenService
	registrationService RegistrationService
	twoFactorService    TwoFactorService
	contextManager      model.ContextManager
	validator           *validation.Validator
	logger              *logger.Logger
}

var _ identity.IdentityServer = (*Identity)(nil)

// NewIdentity creates a new Identity handler.
func NewIdentity(
	authService AuthService,
	tokenService TokenService,
	registrationService RegistrationService,
	twoFactorService TwoFactorService,
	contextManager model.ContextManager,
	validator *validation.Validator,
	logger *logger.Logger,
) *Identity {
	return &Identity{
		authService:         authService,
		tokenService:        tokenService,
		registrationService: registrationService,
		twoFactorService:    twoFactorService,
		contextManager:      contextManager,
		validator:           validator,
		logger:              logger,
	}
}

// decode reads a request message into dst. Service request types are
// validated by the services themselves.
func (h *Identity) decode(in *structpb.Struct, dst any) error {
	if err := identity.Decode(in, dst); err != nil {
		h.logger.Debug("Identity handler: malformed request", "error", err)
		return handleError(apierrors.NewErrInvalidArgument("body", "is malformed"))
	}
	return nil
}

// decodeValid decodes and validates a transport-level request.
func (h *Identity) decodeValid(in *structpb.Struct, dst any) error {
	if err := h.decode(in, dst); err != nil {
		return err
	}
	if err := h.validator.Struct(dst); err != nil {
		return handleError(err)
	}
	return nil
}

func (h *Identity) respond(v any) (*structpb.Struct, error) {
	out, err := identity.Encode(v)
	if err != nil {
		h.logger.Error("Identity handler: failed to encode response", "error", err)
		return nil, handleError(apierrors.NewErrInternal(err))
	}
	return out, nil
}

func (h *Identity) currentUser(ctx context.Context) (uuid.UUID, string, error) {
	userID, ok := h.contextManager.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, "", handleError(apierrors.NewErrUnauthorized("missing authenticated user"))
	}
	email, _ := h.contextManager.GetEmailFromContext(ctx)
	return userID, email, nil
}
