// Package chatcrypt encrypts chat message bodies at rest with age.
package chatcrypt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// Cipher encrypts to and decrypts with a single X25519 identity.
type Cipher struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// New parses an AGE-SECRET-KEY-1... identity string.
func New(secretKey string) (*Cipher, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, errors.New("chat encryption key is empty")
	}
	identity, err := age.ParseX25519Identity(secretKey)
	if err != nil {
		return nil, fmt.Errorf("parse chat encryption key: %w", err)
	}
	return &Cipher{identity: identity, recipient: identity.Recipient()}, nil
}

// Encrypt returns the armored ciphertext of plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, c.recipient)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("armor: %w", err)
	}
	return buf.String(), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	r, err := age.Decrypt(armor.NewReader(strings.NewReader(ciphertext)), c.identity)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(out), nil
}
