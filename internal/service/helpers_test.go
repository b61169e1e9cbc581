package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	redisCache "github.com/dtroode/identity-server/internal/cache/redis"
	"github.com/dtroode/identity-server/internal/clock"
	"github.com/dtroode/identity-server/internal/config"
	"github.com/dtroode/identity-server/internal/model"
	"github.com/dtroode/identity-server/internal/password"
	"github.com/dtroode/identity-server/internal/testutil"
	"github.com/dtroode/identity-server/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testJWTConfig() config.JWT {
	return config.JWT{
		SecretKey:                    testSecret,
		Issuer:                       "identity-server",
		Audience:                     "identity-clients",
		AccessTokenExpirationMinutes: 60,
		RefreshTokenExpirationDays:   7,
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, model.Cache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, redisCache.NewCache(client)
}

func newTestHasher() *password.Bcrypt {
	return password.NewBcrypt(bcrypt.MinCost)
}

func newTestTokenService(t *testing.T, clk clock.Clock, c model.Cache) (*TokenService, *token.JWT) {
	t.Helper()

	cfg := testJWTConfig()
	manager := token.NewJWT(cfg, clk)
	return NewTokenService(manager, c, clk, cfg.RefreshTTL(), testutil.MakeNoopLogger()), manager
}

// memUserStore keeps users in memory and applies lockout updates under one
// lock, the way the SQL store applies them in one statement.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

var _ model.UserStore = (*memUserStore)(nil)

func newMemUserStore(users ...model.User) *memUserStore {
	s := &memUserStore{users: make(map[uuid.UUID]model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) Add(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email || u.ID == user.ID {
			return model.User{}, model.ErrAlreadyExists
		}
	}
	if user.RoleName == "" && user.RoleID == model.RoleViewer {
		user.RoleName = "Viewer"
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *memUserStore) Update(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return model.ErrNotFound
	}

	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.TwoFactorEnabled = user.TwoFactorEnabled
	stored.TwoFactorSecret = user.TwoFactorSecret
	stored.HashedBackupCodes = user.HashedBackupCodes
	stored.UpdatedAt = user.UpdatedAt
	stored.UpdatedBy = user.UpdatedBy
	s.users[user.ID] = stored
	return nil
}

func (s *memUserStore) RecordFailedLogin(_ context.Context, id uuid.UUID, at time.Time, threshold int, lockUntil time.Time) (model.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.LockoutState{}, model.ErrNotFound
	}

	if u.IsAccountLocked && (u.LockedUntil == nil || !u.LockedUntil.After(at)) {
		u.FailedLoginAttempts = 0
		u.IsAccountLocked = false
		u.LockedUntil = nil
	}

	u.FailedLoginAttempts++
	u.LastFailedLoginAt = &at
	if u.FailedLoginAttempts >= threshold && !u.IsAccountLocked {
		u.IsAccountLocked = true
		u.LockedUntil = &lockUntil
	}
	s.users[id] = u

	return model.LockoutState{
		FailedLoginAttempts: u.FailedLoginAttempts,
		IsAccountLocked:     u.IsAccountLocked,
		LockedUntil:         u.LockedUntil,
	}, nil
}

func (s *memUserStore) ResetFailedLogins(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.IsAccountLocked = false
	u.LockedUntil = nil
	u.LastFailedLoginAt = nil
	u.UpdatedAt = &at
	s.users[id] = u
	return nil
}

func (s *memUserStore) ReplaceBackupCodes(_ context.Context, id uuid.UUID, old, updated string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.HashedBackupCodes == nil || *u.HashedBackupCodes != old {
		return false, nil
	}
	u.HashedBackupCodes = &updated
	u.UpdatedAt = &at
	u.UpdatedBy = &u.Email
	s.users[id] = u
	return true, nil
}

func (s *memUserStore) get(t *testing.T, id uuid.UUID) model.User {
	t.Helper()

	u, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// memRoleStore serves the seeded roles.
type memRoleStore struct{}

func (memRoleStore) GetByID(_ context.Context, id int) (model.Role, error) {
	switch id {
	case model.RoleEditor:
		return model.Role{ID: id, Name: "Editor"}, nil
	case model.RoleViewer:
		return model.Role{ID: id, Name: "Viewer"}, nil
	}
	return model.Role{}, model.ErrNotFound
}

func newTestUser(t *testing.T, hasher model.Hasher, email, pass string) model.User {
	t.Helper()

	hash, err := hasher.Hash(pass)
	require.NoError(t, err)

	return model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		RoleID:       model.RoleViewer,
		RoleName:     "Viewer",
		CreatedAt:    testStart.Add(-24 * time.Hour),
		CreatedBy:    email,
	}
}
