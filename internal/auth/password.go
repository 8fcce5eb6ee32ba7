package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mindmate/server/internal/model"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
	passwordSpecials  = "!@#$%^&*()_+=[{]};:<>|./?,-"
)

// CheckPasswordPolicy requires at least 8 characters including an upper and
// a lower case letter, a digit and one of passwordSpecials.
func CheckPasswordPolicy(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return model.ErrWeakPassword
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r) && r < unicode.MaxASCII:
			upper = true
		case unicode.IsLower(r) && r < unicode.MaxASCII:
			lower = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return model.ErrWeakPassword
	}
	return nil
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// ComparePassword returns nil when password matches hash.
func ComparePassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return model.ErrInvalidCredentials
	}
	return err
}
