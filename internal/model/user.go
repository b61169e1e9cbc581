package model

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Add(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) error
	// RecordFailedLogin atomically increments the failed-attempt counter and
	// locks the account until lockUntil once the counter reaches threshold.
	RecordFailedLogin(ctx context.Context, id uuid.UUID, at time.Time, threshold int, lockUntil time.Time) (LockoutState, error)
	// ResetFailedLogins clears the counter and lock fields.
	ResetFailedLogins(ctx context.Context, id uuid.UUID, at time.Time) error
	// ReplaceBackupCodes swaps the stored backup code hashes only while they
	// still equal old. It reports false when another writer got there first.
	ReplaceBackupCodes(ctx context.Context, id uuid.UUID, old, updated string, at time.Time) (bool, error)
}

// User is a durable identity record.
type User struct {
	CreatedAt           time.Time
	UpdatedAt           *time.Time
	LastFailedLoginAt   *time.Time
	LockedUntil         *time.Time
	FirstName           *string
	LastName            *string
	TwoFactorSecret     *string
	HashedBackupCodes   *string
	UpdatedBy           *string
	Email               string
	PasswordHash        string
	RoleName            string
	CreatedBy           string
	RoleID              int
	FailedLoginAttempts int
	ID                  uuid.UUID
	TwoFactorEnabled    bool
	IsAccountLocked     bool
}

// LockoutState is the failed-login bookkeeping returned by the store.
type LockoutState struct {
	LockedUntil         *time.Time
	FailedLoginAttempts int
	IsAccountLocked     bool
}

// LockRemaining reports whether the account is locked at now and for how many
// whole minutes, rounded up.
func (u User) LockRemaining(now time.Time) (int, bool) {
	if !u.IsAccountLocked || u.LockedUntil == nil || !u.LockedUntil.After(now) {
		return 0, false
	}
	return int(math.Ceil(u.LockedUntil.Sub(now).Minutes())), true
}

// HasLockoutState reports whether a successful login must reset bookkeeping.
func (u User) HasLockoutState() bool {
	return u.FailedLoginAttempts > 0 || u.IsAccountLocked
}

// PendingUser is a registration awaiting OTP confirmation.
type PendingUser struct {
	FirstName    *string   `json:"firstName,omitempty"`
	LastName     *string   `json:"lastName,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	RoleID       int       `json:"roleId"`
	ID           uuid.UUID `json:"userId"`
}

// ToUser promotes the pending record to a durable user.
func (p PendingUser) ToUser(now time.Time) User {
	return User{
		ID:           p.ID,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		RoleID:       p.RoleID,
		CreatedAt:    now,
		CreatedBy:    p.Email,
	}
}
