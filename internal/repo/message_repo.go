package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
)

// MessageRepo defines the interface for chat message persistence. Message
// bodies are ciphertext; encryption happens above this layer.
type MessageRepo interface {
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error)
	AppendExchange(ctx context.Context, conversationID uuid.UUID, userCiphertext, assistantCiphertext string, summary *string) error
}

type messageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo instance
func NewMessageRepo(db *sql.DB) MessageRepo {
	return &messageRepo{db: db}
}

// ListByConversation returns messages oldest first.
func (r *messageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, encrypted_text, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		var sender string
		if err := rows.Scan(&m.ID, &m.ConversationID, &sender, &m.Ciphertext, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender = model.Sender(sender)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

// AppendExchange stores a user message, the assistant reply and (when non-nil)
// the new summary in one transaction.
func (r *messageRepo) AppendExchange(ctx context.Context, conversationID uuid.UUID, userCiphertext, assistantCiphertext string, summary *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO messages (conversation_id, sender, encrypted_text)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, insert, conversationID, string(model.SenderUser), userCiphertext); err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, conversationID, string(model.SenderAssistant), assistantCiphertext); err != nil {
		return fmt.Errorf("insert assistant message: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE conversations
		SET summary = COALESCE($2, summary), updated_at = now()
		WHERE id = $1
	`, conversationID, summary)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if err := requireOneRow(result, model.ErrNotFound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
