package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
)

// ConversationRepo defines the interface for conversation repository operations.
// Ownership is checked by the caller; GetByID does not filter by user.
type ConversationRepo interface {
	Create(ctx context.Context, userID uuid.UUID, title string) (model.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Conversation, error)
	Rename(ctx context.Context, id uuid.UUID, title string) (model.Conversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type conversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new ConversationRepo instance
func NewConversationRepo(db *sql.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

const conversationColumns = `id, user_id, title, summary, created_at, updated_at`

func scanConversation(row interface{ Scan(...any) error }) (model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Summary, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Conversation{}, model.ErrNotFound
		}
		return model.Conversation{}, fmt.Errorf("failed to scan conversation: %w", err)
	}
	return c, nil
}

func (r *conversationRepo) Create(ctx context.Context, userID uuid.UUID, title string) (model.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING `+conversationColumns, userID, title)
	return scanConversation(row)
}

// ListByUser returns the user's conversations, most recently active first.
func (r *conversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]model.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (r *conversationRepo) Rename(ctx context.Context, id uuid.UUID, title string) (model.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE conversations SET title = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+conversationColumns, id, title)
	return scanConversation(row)
}

// Delete removes the conversation; messages cascade.
func (r *conversationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return requireOneRow(result, model.ErrNotFound)
}
