package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/identity-server/internal/model"
)

const uniqueViolation = "23505"

const userColumns = `u.user_id, u.role_id, r.role_name, u.email, u.password, u.first_name, u.last_name,
	u.two_factor_enabled, u.two_factor_secret, u.hashed_backup_codes,
	u.is_account_locked, u.failed_login_attempts, u.last_failed_login_at, u.locked_until,
	u.created_at, u.created_by, u.updated_at, u.updated_by`

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + userColumns + `
			  FROM users u JOIN roles r ON r.role_id = u.role_id
			  WHERE u.email = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + `
			  FROM users u JOIN roles r ON r.role_id = u.role_id
			  WHERE u.user_id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// Add inserts a user and returns it with the role name resolved.
func (r *UserRepository) Add(ctx context.Context, user model.User) (model.User, error) {
	query := `WITH u AS (
				INSERT INTO users (user_id, role_id, email, password, first_name, last_name, created_at, created_by)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING *
			  )
			  SELECT ` + userColumns + `
			  FROM u JOIN roles r ON r.role_id = u.role_id`

	saved, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.RoleID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.CreatedAt, user.CreatedBy,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.User{}, model.ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return saved, nil
}

// Update writes profile and second factor fields. Lockout bookkeeping is
// owned by RecordFailedLogin and ResetFailedLogins and is never overwritten
// here.
func (r *UserRepository) Update(ctx context.Context, user model.User) error {
	query := `UPDATE users SET
				first_name = $2,
				last_name = $3,
				two_factor_enabled = $4,
				two_factor_secret = $5,
				hashed_backup_codes = $6,
				updated_at = $7,
				updated_by = $8
			  WHERE user_id = $1`

	tag, err := r.db.Exec(ctx, query,
		user.ID, user.FirstName, user.LastName,
		user.TwoFactorEnabled, user.TwoFactorSecret, user.HashedBackupCodes,
		user.UpdatedAt, user.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// RecordFailedLogin applies one failed attempt in a single statement. Every
// SET expression reads the row as it was before the update, so concurrent
// failures serialize on the row lock and none of them is lost. An expired
// lock starts a new window at one attempt.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, at time.Time, threshold int, lockUntil time.Time) (model.LockoutState, error) {
	query := `UPDATE users SET
				failed_login_attempts = CASE
					WHEN is_account_locked AND NOT COALESCE(locked_until > $2, FALSE) THEN 1
					ELSE failed_login_attempts + 1
				END,
				is_account_locked = (is_account_locked AND COALESCE(locked_until > $2, FALSE))
					OR (CASE
						WHEN is_account_locked AND NOT COALESCE(locked_until > $2, FALSE) THEN 1
						ELSE failed_login_attempts + 1
					END) >= $3,
				locked_until = CASE
					WHEN is_account_locked AND COALESCE(locked_until > $2, FALSE) THEN locked_until
					WHEN (CASE
						WHEN is_account_locked AND NOT COALESCE(locked_until > $2, FALSE) THEN 1
						ELSE failed_login_attempts + 1
					END) >= $3 THEN $4::timestamptz
					ELSE NULL
				END,
				last_failed_login_at = $2
			  WHERE user_id = $1
			  RETURNING failed_login_attempts, is_account_locked, locked_until`

	var state model.LockoutState
	err := r.db.QueryRow(ctx, query, id, at, threshold, lockUntil).Scan(
		&state.FailedLoginAttempts, &state.IsAccountLocked, &state.LockedUntil,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LockoutState{}, model.ErrNotFound
		}
		return model.LockoutState{}, fmt.Errorf("failed to record failed login: %w", err)
	}

	return state, nil
}

func (r *UserRepository) ResetFailedLogins(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET
				failed_login_attempts = 0,
				is_account_locked = FALSE,
				locked_until = NULL,
				last_failed_login_at = NULL,
				updated_at = $2,
				updated_by = email
			  WHERE user_id = $1`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to reset failed logins: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) ReplaceBackupCodes(ctx context.Context, id uuid.UUID, old, updated string, at time.Time) (bool, error) {
	query := `UPDATE users SET
				hashed_backup_codes = $3,
				updated_at = $4,
				updated_by = email
			  WHERE user_id = $1 AND hashed_backup_codes = $2`

	tag, err := r.db.Exec(ctx, query, id, old, updated, at)
	if err != nil {
		return false, fmt.Errorf("failed to replace backup codes: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.RoleID, &user.RoleName, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName,
		&user.TwoFactorEnabled, &user.TwoFactorSecret, &user.HashedBackupCodes,
		&user.IsAccountLocked, &user.FailedLoginAttempts, &user.LastFailedLoginAt, &user.LockedUntil,
		&user.CreatedAt, &user.CreatedBy, &user.UpdatedAt, &user.UpdatedBy,
	)
	return user, err
}
