package handler

import "github.com/google/uuid"

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type codeRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserRole     string `json:"userRole,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Email  string    `json:"email"`
	UserID uuid.UUID `json:"userId"`
}

type twoFactorSetupResponse struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioningUri"`
	BackupCodes     []string `json:"backupCodes"`
}
