package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/model"
)

func TestValidator_RegisterRequest(t *testing.T) {
	t.Parallel()

	v := New()

	tests := []struct {
		name       string
		req        model.RegisterRequest
		wantFields map[string]string
	}{
		{
			name: "valid",
			req:  model.RegisterRequest{Email: "a@b.com", Password: "Str0ng!Passw0rd", ConfirmPassword: "Str0ng!Passw0rd"},
		},
		{
			name: "missing everything",
			req:  model.RegisterRequest{},
			wantFields: map[string]string{
				"email":           "is required",
				"password":        "is required",
				"confirmPassword": "is required",
			},
		},
		{
			name: "bad email",
			req:  model.RegisterRequest{Email: "not-an-email", Password: "Str0ng!Passw0rd", ConfirmPassword: "Str0ng!Passw0rd"},
			wantFields: map[string]string{
				"email": "format is invalid",
			},
		},
		{
			name: "too short",
			req:  model.RegisterRequest{Email: "a@b.com", Password: "Sh0rt!", ConfirmPassword: "Sh0rt!"},
			wantFields: map[string]string{
				"password": "must be at least 12 characters",
			},
		},
		{
			name: "multibyte password over bcrypt limit",
			req: model.RegisterRequest{
				Email:           "a@b.com",
				Password:        "Ä!" + strings.Repeat("é", 40),
				ConfirmPassword: "Ä!" + strings.Repeat("é", 40),
			},
			wantFields: map[string]string{
				"password": "must be at most 72 bytes",
			},
		},
		{
			name: "multibyte password at bcrypt limit",
			req: model.RegisterRequest{
				Email:           "a@b.com",
				Password:        "Ä!" + strings.Repeat("é", 34),
				ConfirmPassword: "Ä!" + strings.Repeat("é", 34),
			},
		},
		{
			name: "no uppercase",
			req:  model.RegisterRequest{Email: "a@b.com", Password: "lowercase!only1", ConfirmPassword: "lowercase!only1"},
			wantFields: map[string]string{
				"password": "must contain at least one uppercase letter and one special character",
			},
		},
		{
			name: "no special character",
			req:  model.RegisterRequest{Email: "a@b.com", Password: "NoSpecialChars1", ConfirmPassword: "NoSpecialChars1"},
			wantFields: map[string]string{
				"password": "must contain at least one uppercase letter and one special character",
			},
		},
		{
			name: "mismatched confirmation",
			req:  model.RegisterRequest{Email: "a@b.com", Password: "Str0ng!Passw0rd", ConfirmPassword: "Str0ng!Passw0rd?"},
			wantFields: map[string]string{
				"confirmPassword": "passwords do not match",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(tt.req)
			if tt.wantFields == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, apierrors.ErrValidation)
			apiErr, ok := apierrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantFields, apiErr.Fields)
		})
	}
}

func TestValidator_ValidateOtpRequest(t *testing.T) {
	t.Parallel()

	v := New()

	require.NoError(t, v.Struct(model.ValidateOtpRequest{Email: "a@b.com", Otp: "123456"}))

	err := v.Struct(model.ValidateOtpRequest{Email: "a@b.com", Otp: "12345"})
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "must be 6 characters", apiErr.Fields["otp"])

	err = v.Struct(model.ValidateOtpRequest{Email: "a@b.com", Otp: "12a456"})
	apiErr, ok = apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "must contain only digits", apiErr.Fields["otp"])
}

func TestValidator_NonStruct(t *testing.T) {
	t.Parallel()

	err := New().Struct("plain string")
	require.ErrorIs(t, err, apierrors.ErrValidation)
}
