// Package totp implements the time-based second factor: shared secrets,
// codes with a one-step drift window, and hashed backup codes.
package totp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/xlzd/gotp"

	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/model"
)

const (
	secretSize      = 32
	codeDigits      = 6
	step            = 30 * time.Second
	backupCodeCount = 10
)

var (
	ErrInvalidSecret = errors.New("invalid totp secret")

	secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
	backupCodeMax  = big.NewInt(100_000_000)
	driftWindow    = []time.Duration{0, -step, step}
)

// Engine generates and validates TOTP codes and backup codes.
type Engine struct {
	clock     clock.Clock
	hasher    model.Hasher
	encryptor model.Encryptor
	issuer    string
}

var _ model.TotpEngine = (*Engine)(nil)

// NewEngine creates an Engine. Secrets are sealed with encryptor and backup
// codes are hashed with hasher.
func NewEngine(issuer string, clk clock.Clock, hasher model.Hasher, encryptor model.Encryptor) *Engine {
	return &Engine{
		issuer:    issuer,
		clock:     clk,
		hasher:    hasher,
		encryptor: encryptor,
	}
}

// GenerateSecretKey returns 256 random bits, Base32 encoded without padding.
func (e *Engine) GenerateSecretKey() (string, error) {
	buf := make([]byte, secretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return secretEncoding.EncodeToString(buf), nil
}

// GenerateTotp returns the code for the current time step.
func (e *Engine) GenerateTotp(secret string) (string, error) {
	return e.codeAt(secret, e.clock.Now())
}

// ValidateTotp accepts the current, previous and next time step.
func (e *Engine) ValidateTotp(secret, code string) bool {
	if len(code) != codeDigits || !isDigits(code) {
		return false
	}

	now := e.clock.Now()
	matched := false
	for _, offset := range driftWindow {
		expected, err := e.codeAt(secret, now.Add(offset))
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			matched = true
		}
	}
	return matched
}

// ProvisioningURI returns otpauth://totp/{issuer}:{email} for authenticator
// apps. The label is escaped once, as a path.
func (e *Engine) ProvisioningURI(email, secret string) string {
	u := url.URL{
		Scheme: "otpauth",
		Host:   "totp",
		Path:   e.issuer + ":" + email,
		RawQuery: url.Values{
			"secret": {secret},
			"issuer": {e.issuer},
		}.Encode(),
	}
	return u.String()
}

// GenerateBackupCodes returns ten DDDD-DDDD codes from a CSPRNG.
func (e *Engine) GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		n, err := rand.Int(rand.Reader, backupCodeMax)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		v := n.Int64()
		codes = append(codes, fmt.Sprintf("%04d-%04d", v/10_000, v%10_000))
	}
	return codes, nil
}

// HashBackupCodes returns the JSON array of hashed codes stored on the user.
func (e *Engine) HashBackupCodes(codes []string) (string, error) {
	hashes := make([]string, 0, len(codes))
	for _, c := range codes {
		h, err := e.hasher.Hash(c)
		if err != nil {
			return "", fmt.Errorf("failed to hash backup code: %w", err)
		}
		hashes = append(hashes, h)
	}

	out, err := json.Marshal(hashes)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup codes: %w", err)
	}
	return string(out), nil
}

// ConsumeBackupCode checks code against the stored hashes. On a match it
// returns the serialized remaining hashes with the used one removed.
func (e *Engine) ConsumeBackupCode(hashedCodes, code string) (string, bool, error) {
	code = strings.TrimSpace(code)
	if hashedCodes == "" || code == "" {
		return hashedCodes, false, nil
	}

	var hashes []string
	if err := json.Unmarshal([]byte(hashedCodes), &hashes); err != nil {
		return hashedCodes, false, fmt.Errorf("failed to unmarshal backup codes: %w", err)
	}

	for i, h := range hashes {
		if !e.hasher.Verify(h, code) {
			continue
		}
		remaining := append(hashes[:i:i], hashes[i+1:]...)
		out, err := json.Marshal(remaining)
		if err != nil {
			return hashedCodes, false, fmt.Errorf("failed to marshal backup codes: %w", err)
		}
		return string(out), true, nil
	}

	return hashedCodes, false, nil
}

// SealSecret encrypts a secret for storage.
func (e *Engine) SealSecret(secret string) (string, error) {
	return e.encryptor.Encrypt(secret)
}

// OpenSecret decrypts a stored secret.
func (e *Engine) OpenSecret(sealed string) (string, error) {
	return e.encryptor.Decrypt(sealed)
}

func (e *Engine) codeAt(secret string, at time.Time) (string, error) {
	if err := checkSecret(secret); err != nil {
		return "", err
	}
	return gotp.NewDefaultTOTP(secret).At(int(at.Unix())), nil
}

// checkSecret guards gotp, which panics on undecodable secrets.
func checkSecret(secret string) error {
	if secret == "" {
		return ErrInvalidSecret
	}
	if _, err := secretEncoding.DecodeString(strings.TrimRight(secret, "=")); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
