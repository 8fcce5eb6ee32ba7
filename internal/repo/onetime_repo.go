package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
)

// OneTimeTokenRepo stores hashed single-use tokens. Consumption runs a
// conditional update so at most one caller wins, and the mutation the token
// guards commits in the same transaction.
type OneTimeTokenRepo interface {
	Create(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose, tokenHash string, expiresAt time.Time) (uuid.UUID, error)
	ConsumeEmailVerification(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (uuid.UUID, error)
}

type oneTimeTokenRepo struct {
	db *sql.DB
}

// NewOneTimeTokenRepo creates a new OneTimeTokenRepo instance
func NewOneTimeTokenRepo(db *sql.DB) OneTimeTokenRepo {
	return &oneTimeTokenRepo{db: db}
}

// Create inserts a fresh unused token.
func (r *oneTimeTokenRepo) Create(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO one_time_tokens (user_id, purpose, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, string(purpose), tokenHash, expiresAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert one-time token: %w", err)
	}
	return id, nil
}

// ConsumeEmailVerification consumes the token and flips is_verified.
func (r *oneTimeTokenRepo) ConsumeEmailVerification(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	return r.consumeAndApply(ctx, tokenHash, model.PurposeEmailVerification, now, func(tx *sql.Tx, userID uuid.UUID) error {
		_, err := tx.ExecContext(ctx, `UPDATE users SET is_verified = true WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		return nil
	})
}

// ConsumePasswordReset consumes the token, overwrites the password and ends
// the current refresh session.
func (r *oneTimeTokenRepo) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (uuid.UUID, error) {
	return r.consumeAndApply(ctx, tokenHash, model.PurposePasswordReset, now, func(tx *sql.Tx, userID uuid.UUID) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE users SET password_hash = $2, refresh_token_hash = NULL WHERE id = $1
		`, userID, passwordHash)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return requireOneRow(result, model.ErrAccountNotFound)
	})
}

func (r *oneTimeTokenRepo) consumeAndApply(
	ctx context.Context,
	tokenHash string,
	purpose model.TokenPurpose,
	now time.Time,
	apply func(tx *sql.Tx, userID uuid.UUID) error,
) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		UPDATE one_time_tokens
		SET used = true, used_at = $3
		WHERE token_hash = $1 AND purpose = $2 AND used = false AND expires_at > $3
		RETURNING user_id
	`, tokenHash, string(purpose), now).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, r.classify(ctx, tx, tokenHash, purpose, now)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("consume token: %w", err)
	}

	if err := apply(tx, userID); err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}

// classify explains why the conditional update matched nothing.
func (r *oneTimeTokenRepo) classify(ctx context.Context, tx *sql.Tx, tokenHash string, purpose model.TokenPurpose, now time.Time) error {
	var expiresAt time.Time
	err := tx.QueryRowContext(ctx, `
		SELECT expires_at FROM one_time_tokens
		WHERE token_hash = $1 AND purpose = $2
	`, tokenHash, string(purpose)).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup token: %w", err)
	}
	if !now.Before(expiresAt) {
		return model.ErrTokenExpired
	}
	// Unexpired but not updatable: used, possibly by a concurrent caller.
	return model.ErrTokenAlreadyUsed
}
