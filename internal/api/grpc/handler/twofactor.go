package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"
)

// SetupTwoFactor enrolls the caller. The secret and backup codes are only
// returned by this call.
func (h *Identity) SetupTwoFactor(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, _, err := h.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	setup, err := h.twoFactorService.Setup(ctx, userID)
	if err != nil {
		h.logger.Info("Identity handler: two-factor setup failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(twoFactorSetupResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
		BackupCodes:     setup.BackupCodes,
	})
}

// ConfirmTwoFactor enables the caller's second factor.
func (h *Identity) ConfirmTwoFactor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, _, err := h.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var req codeRequest
	if err := h.decodeValid(in, &req); err != nil {
		return nil, err
	}

	if err := h.twoFactorService.Confirm(ctx, userID, req.Code); err != nil {
		h.logger.Info("Identity handler: two-factor confirmation failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(messageResponse{Message: "Two-factor authentication enabled."})
}

// DisableTwoFactor removes the caller's second factor.
func (h *Identity) DisableTwoFactor(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, _, err := h.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var req codeRequest
	if err := h.decodeValid(in, &req); err != nil {
		return nil, err
	}

	if err := h.twoFactorService.Disable(ctx, userID, req.Code); err != nil {
		h.logger.Info("Identity handler: two-factor disable failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(messageResponse{Message: "Two-factor authentication disabled."})
}
