// Package password hashes and verifies secrets with bcrypt.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/identity-server/internal/model"
)

// Bcrypt implements model.Hasher.
type Bcrypt struct {
	cost int
}

var _ model.Hasher = (*Bcrypt)(nil)

// NewBcrypt creates a hasher with the given cost. Zero selects bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash returns the bcrypt hash of value.
func (b *Bcrypt) Hash(value string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(value), b.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash value: %w", err)
	}
	return string(hash), nil
}

// Verify compares value against hash in constant time.
func (b *Bcrypt) Verify(hash, value string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(value)) == nil
}
