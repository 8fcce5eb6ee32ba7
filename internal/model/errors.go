package model

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrDuplicateEmail        = errors.New("duplicate_email")
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrUnverifiedAccount     = errors.New("unverified_account")
	ErrWeakPassword          = errors.New("weak_password")
	ErrInvalidRefreshToken   = errors.New("invalid_refresh_token")
	ErrTokenExpired          = errors.New("token_expired")
	ErrTokenNotFound         = errors.New("token_not_found")
	ErrTokenAlreadyUsed      = errors.New("token_already_used")
	ErrAccountNotFound       = errors.New("account_not_found")
	ErrEmailMismatch         = errors.New("email_mismatch")
	ErrAlreadyLinked         = errors.New("already_linked")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrPasswordAlreadySet    = errors.New("password_already_set")
	ErrNotFound              = errors.New("not_found")
	ErrForbidden             = errors.New("forbidden")
	ErrFederatedEmailMissing = errors.New("federated_email_missing")
	ErrInvalidState          = errors.New("invalid_state")
	ErrValidation            = errors.New("validation_error")
)

// ValidationError lists the offending fields and unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a single-field ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Fields: map[string]string{field: reason}}
}
