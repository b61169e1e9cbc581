package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/identity-server/internal/model"
)

// Register starts a registration and sends a confirmation code.
func (h *Identity) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req model.RegisterRequest
	if err := h.decode(in, &req); err != nil {
		return nil, err
	}

	h.logger.Debug("Identity handler: processing registration request", "email", req.Email)

	if err := h.registrationService.Register(ctx, req); err != nil {
		h.logger.Info("Identity handler: registration failed",
			"email", req.Email,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(messageResponse{Message: "Registration started. Check your email for the verification code."})
}

// ValidateOtp confirms a registration.
func (h *Identity) ValidateOtp(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req model.ValidateOtpRequest
	if err := h.decode(in, &req); err != nil {
		return nil, err
	}

	if err := h.registrationService.ValidateOtp(ctx, req); err != nil {
		h.logger.Info("Identity handler: otp validation failed",
			"email", req.Email,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(messageResponse{Message: "Registration completed."})
}

// ResendOtp sends a new confirmation code.
func (h *Identity) ResendOtp(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req model.ResendOtpRequest
	if err := h.decode(in, &req); err != nil {
		return nil, err
	}

	if err := h.registrationService.ResendOtp(ctx, req); err != nil {
		h.logger.Info("Identity handler: otp resend failed",
			"email", req.Email,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(messageResponse{Message: "A new verification code has been sent."})
}
