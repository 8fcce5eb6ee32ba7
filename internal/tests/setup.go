// Package tests holds DB-backed integration tests. They skip unless
// DATABASE_URL points at a disposable PostgreSQL database.
package tests

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/mindmate/server/internal/assistant"
	"github.com/mindmate/server/internal/db"
)

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if err := db.MigrateUp(ctx, database); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// TruncateAll empties every application table for a clean test state.
func TruncateAll(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx,
		"TRUNCATE TABLE messages, conversations, journal_entries, mood_logs, one_time_tokens, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// Outbox captures one-time tokens instead of mailing them.
type Outbox struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{tokens: map[string]string{}}
}

func (o *Outbox) put(kind, email, token string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tokens[kind+":"+strings.ToLower(email)] = token
}

// SendVerification records the verification token.
func (o *Outbox) SendVerification(_ context.Context, email, token string) error {
	o.put("verify", email, token)
	return nil
}

// SendPasswordReset records the reset token.
func (o *Outbox) SendPasswordReset(_ context.Context, email, token string) error {
	o.put("reset", email, token)
	return nil
}

// Token returns the last token of kind ("verify" or "reset") sent to email.
func (o *Outbox) Token(kind, email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tokens[kind+":"+strings.ToLower(email)]
}

// EchoAssistant replies deterministically and keeps a running summary.
type EchoAssistant struct{}

var _ assistant.Completer = EchoAssistant{}

// Reply echoes the message.
func (EchoAssistant) Reply(_ context.Context, _ string, _ []assistant.Turn, message string) (string, error) {
	return "I hear you: " + message, nil
}

// Summarize reports how many turns it saw.
func (EchoAssistant) Summarize(_ context.Context, transcript []assistant.Turn) (string, error) {
	return fmt.Sprintf("%d turns so far", len(transcript)), nil
}
