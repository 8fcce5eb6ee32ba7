package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
	"github.com/mindmate/server/internal/repo"
)

const (
	passwordResetExpiry     = 15 * time.Minute
	emailVerificationExpiry = time.Hour
)

// OneTimeTokens issues and consumes single-use tokens backed by PostgreSQL.
// Only the SHA-256 of a token is stored; the raw value is returned once for delivery.
type OneTimeTokens struct {
	repo repo.OneTimeTokenRepo
	now  func() time.Time
}

// NewOneTimeTokens creates a new one-time token store
func NewOneTimeTokens(r repo.OneTimeTokenRepo) *OneTimeTokens {
	return &OneTimeTokens{repo: r, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (o *OneTimeTokens) WithClock(now func() time.Time) *OneTimeTokens {
	o.now = now
	return o
}

func expiryFor(purpose model.TokenPurpose) (time.Duration, error) {
	switch purpose {
	case model.PurposePasswordReset:
		return passwordResetExpiry, nil
	case model.PurposeEmailVerification:
		return emailVerificationExpiry, nil
	default:
		return 0, fmt.Errorf("unknown token purpose %q", purpose)
	}
}

// Issue creates a token for the account and returns the raw value.
func (o *OneTimeTokens) Issue(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose) (string, error) {
	ttl, err := expiryFor(purpose)
	if err != nil {
		return "", err
	}
	token, hashHex, err := GenerateOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if _, err := o.repo.Create(ctx, userID, purpose, hashHex, o.now().Add(ttl)); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	// Never log the raw token
	return token, nil
}

// ConsumeEmailVerification marks the token used and the account verified.
func (o *OneTimeTokens) ConsumeEmailVerification(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, model.ErrTokenNotFound
	}
	return o.repo.ConsumeEmailVerification(ctx, HashToken(token), o.now())
}

// ConsumePasswordReset marks the token used and stores the new password hash atomically.
func (o *OneTimeTokens) ConsumePasswordReset(ctx context.Context, token, passwordHash string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, model.ErrTokenNotFound
	}
	return o.repo.ConsumePasswordReset(ctx, HashToken(token), o.now(), passwordHash)
}
