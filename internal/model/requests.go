package model

import "github.com/google/uuid"

// RegisterRequest starts an OTP-gated registration.
type RegisterRequest struct {
	FirstName       *string `json:"firstName" validate:"omitempty,max=100"`
	LastName        *string `json:"lastName" validate:"omitempty,max=100"`
	Email           string  `json:"email" validate:"required,email,max=256"`
	Password        string  `json:"password" validate:"required,min=12,max_bytes=72,password_strength"`
	ConfirmPassword string  `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// ValidateOtpRequest confirms a pending registration.
type ValidateOtpRequest struct {
	Email string `json:"email" validate:"required,email,max=256"`
	Otp   string `json:"otp" validate:"required,len=6,numeric"`
}

// ResendOtpRequest asks for a new registration code.
type ResendOtpRequest struct {
	Email string `json:"email" validate:"required,email,max=256"`
}

// LoginRequest authenticates with a password and an optional second factor.
type LoginRequest struct {
	Email            string `json:"email" validate:"required,email,max=256"`
	Password         string `json:"password" validate:"required"`
	SecondFactorCode string `json:"code" validate:"omitempty,max=16"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	TokenPair
	Role string
}

// TwoFactorSetup is returned once when a user enrolls a second factor.
type TwoFactorSetup struct {
	Secret          string
	ProvisioningURI string
	BackupCodes     []string
	UserID          uuid.UUID
}
