package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/identity-server/internal/model"
)

const healthyStatus = "Identity service is healthy."

// Login exchanges credentials for a token pair.
func (h *Identity) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req model.LoginRequest
	if err := h.decode(in, &req); err != nil {
		return nil, err
	}

	h.logger.Debug("Identity handler: processing login request", "email", req.Email)

	result, err := h.authService.Login(ctx, req)
	if err != nil {
		h.logger.Info("Identity handler: login failed",
			"email", req.Email,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		UserRole:     result.Role,
	})
}

// RefreshToken rotates a refresh token.
func (h *Identity) RefreshToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req refreshTokenRequest
	if err := h.decodeValid(in, &req); err != nil {
		return nil, err
	}

	pair, err := h.tokenService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.logger.Info("Identity handler: refresh failed", "error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout revokes the session of a refresh token.
func (h *Identity) Logout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req refreshTokenRequest
	if err := h.decodeValid(in, &req); err != nil {
		return nil, err
	}

	if err := h.tokenService.Revoke(ctx, req.RefreshToken); err != nil {
		h.logger.Info("Identity handler: logout failed", "error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(messageResponse{Message: "Logged out."})
}

// Health reports service status to an authenticated caller.
func (h *Identity) Health(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, email, err := h.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	return h.respond(healthResponse{
		Status: healthyStatus,
		UserID: userID,
		Email:  email,
	})
}
