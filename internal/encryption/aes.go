// Package encryption seals small secrets at rest with AES-256-CBC.
package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dtroode/identity-server/internal/apierrors"
	"github.com/dtroode/identity-server/internal/model"
)

const (
	keySize = 32
	ivSize  = aes.BlockSize
)

var (
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes for AES-256")
	ErrInvalidIVSize  = errors.New("encryption iv must be 16 bytes")
	ErrInvalidPadding = errors.New("invalid padding")
)

// AESCBC encrypts with a fixed key and IV, PKCS7 padded, base64 encoded.
// The fixed IV makes encryption deterministic for equal plaintexts.
type AESCBC struct {
	block cipher.Block
	iv    []byte
}

var _ model.Encryptor = (*AESCBC)(nil)

// NewAESCBC validates the key material once and returns an encryptor.
func NewAESCBC(key, iv []byte) (*AESCBC, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != ivSize {
		return nil, ErrInvalidIVSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &AESCBC{block: block, iv: bytes.Clone(iv)}, nil
}

// Encrypt returns base64(AES-CBC(PKCS7(plaintext))).
func (e *AESCBC) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", apierrors.NewErrInvalidArgument("plaintext", "must not be empty")
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, e.iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (e *AESCBC) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", apierrors.NewErrInvalidArgument("ciphertext", "must not be empty")
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(raw))
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(e.block, e.iv).CryptBlocks(out, raw)

	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
