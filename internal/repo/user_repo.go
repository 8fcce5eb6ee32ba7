package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mindmate/server/internal/model"
)

const uniqueViolation = "23505"

// UserRepo defines the interface for account repository operations.
// Emails are expected to be normalised (trimmed, lower-cased) by the caller.
type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	Create(ctx context.Context, a model.NewAccount) (model.Account, error)
	SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error
	RotateRefreshTokenHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error)
	ClearRefreshTokenHash(ctx context.Context, id uuid.UUID, oldHash string) (bool, error)
	SetPasswordIfUnset(ctx context.Context, id uuid.UUID, passwordHash string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	LinkGoogle(ctx context.Context, id uuid.UUID, firstName, lastName *string, refreshHash string) (bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch model.AccountPatch) (model.Account, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const accountColumns = `id, email, password_hash, is_verified, is_active, auth_provider,
		       is_google_linked, first_name, last_name, refresh_token_hash, created_at`

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var a model.Account
	var provider string
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.IsVerified,
		&a.IsActive,
		&provider,
		&a.IsGoogleLinked,
		&a.FirstName,
		&a.LastName,
		&a.RefreshTokenHash,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrAccountNotFound
		}
		return model.Account{}, fmt.Errorf("failed to scan account: %w", err)
	}
	a.AuthProvider = model.AuthProvider(provider)
	return a, nil
}

// GetByID retrieves an account by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByEmail retrieves an account by normalised email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE lower(email) = $1`, email)
	return scanAccount(row)
}

// Create inserts an account. A unique violation on email maps to ErrDuplicateEmail.
func (r *userRepo) Create(ctx context.Context, a model.NewAccount) (model.Account, error) {
	provider := a.AuthProvider
	if provider == "" {
		provider = model.ProviderLocal
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, is_verified, auth_provider, is_google_linked, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+accountColumns,
		a.Email, a.PasswordHash, a.IsVerified, string(provider), a.IsGoogleLinked, a.FirstName, a.LastName,
	)
	acc, err := scanAccount(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.Account{}, model.ErrDuplicateEmail
		}
		return model.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

// SetRefreshTokenHash overwrites the stored refresh token (login, last write wins).
func (r *userRepo) SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_token_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return requireOneRow(result, model.ErrAccountNotFound)
}

// RotateRefreshTokenHash replaces the stored hash only if it still equals oldHash.
// Of two concurrent rotations from the same token exactly one returns true.
func (r *userRepo) RotateRefreshTokenHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET refresh_token_hash = $3
		WHERE id = $1 AND refresh_token_hash = $2
	`, id, oldHash, newHash)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return affected(result)
}

// ClearRefreshTokenHash removes the stored hash if it equals oldHash.
func (r *userRepo) ClearRefreshTokenHash(ctx context.Context, id uuid.UUID, oldHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET refresh_token_hash = NULL
		WHERE id = $1 AND refresh_token_hash = $2
	`, id, oldHash)
	if err != nil {
		return false, fmt.Errorf("clear refresh token: %w", err)
	}
	return affected(result)
}

// SetPasswordIfUnset stores a password for an account that has none.
func (r *userRepo) SetPasswordIfUnset(ctx context.Context, id uuid.UUID, passwordHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2
		WHERE id = $1 AND (password_hash IS NULL OR password_hash = '')
	`, id, passwordHash)
	if err != nil {
		return false, fmt.Errorf("set password: %w", err)
	}
	return affected(result)
}

// UpdatePasswordHash overwrites the password and ends the current session.
func (r *userRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, refresh_token_hash = NULL WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireOneRow(result, model.ErrAccountNotFound)
}

// LinkGoogle marks the account as Google-linked and verified and stores the new
// refresh hash. Returns false if the account was already linked.
func (r *userRepo) LinkGoogle(ctx context.Context, id uuid.UUID, firstName, lastName *string, refreshHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_google_linked = true,
		    auth_provider = 'google',
		    is_verified = true,
		    first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name),
		    refresh_token_hash = $4
		WHERE id = $1 AND is_google_linked = false
	`, id, firstName, lastName, refreshHash)
	if err != nil {
		return false, fmt.Errorf("link google: %w", err)
	}
	return affected(result)
}

// UpdateProfile applies a partial update of the display names.
func (r *userRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch model.AccountPatch) (model.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name)
		WHERE id = $1
		RETURNING `+accountColumns,
		id, patch.FirstName, patch.LastName,
	)
	return scanAccount(row)
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func requireOneRow(result sql.Result, notFound error) error {
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}
