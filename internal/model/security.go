package model

import (
	"context"
	"time"
)

// Hasher produces one-way hashes and verifies values against them.
type Hasher interface {
	Hash(value string) (string, error)
	Verify(hash, value string) bool
}

// Encryptor encrypts small secrets at rest.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// OtpIssuer issues and verifies one-time codes bound to an email.
type OtpIssuer interface {
	Generate(ctx context.Context, email string, ttl time.Duration) (string, error)
	// Verify checks code without spending it. Mismatches count towards the
	// attempt limit.
	Verify(ctx context.Context, email, code string) (bool, error)
	// Consume invalidates the code once the action it gated has succeeded.
	Consume(ctx context.Context, email string) error
}

// TotpEngine implements time-based second factor codes.
type TotpEngine interface {
	GenerateSecretKey() (string, error)
	ValidateTotp(secret, code string) bool
	GenerateBackupCodes() ([]string, error)
	ProvisioningURI(email, secret string) string
}
