package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmate/server/internal/model"
)

var conversationCols = []string{"id", "user_id", "title", "summary", "created_at", "updated_at"}

func TestConversationRepo_ListByUser(t *testing.T) {
	db, mock := newMock(t)
	r := NewConversationRepo(db)

	userID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .* FROM conversations\s+WHERE user_id = \$1\s+ORDER BY updated_at DESC`).
		WillReturnRows(sqlmock.NewRows(conversationCols).
			AddRow(uuid.NewString(), userID.String(), "Later", "summary", now, now).
			AddRow(uuid.NewString(), userID.String(), "New Chat", nil, now, now.Add(-time.Hour)))

	got, err := r.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Later", got[0].Title)
	require.NotNil(t, got[0].Summary)
	assert.Nil(t, got[1].Summary)
}

func TestConversationRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	r := NewConversationRepo(db)

	mock.ExpectQuery(`FROM conversations WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

	_, err := r.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConversationRepo_Delete_NotFound(t *testing.T) {
	db, mock := newMock(t)
	r := NewConversationRepo(db)

	mock.ExpectExec(`DELETE FROM conversations WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMessageRepo_AppendExchange(t *testing.T) {
	db, mock := newMock(t)
	r := NewMessageRepo(db)

	convID := uuid.New()
	summary := "User feels anxious about exams."

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO messages`).
		WithArgs(sqlmock.AnyArg(), "user", "c-user").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO messages`).
		WithArgs(sqlmock.AnyArg(), "assistant", "c-bot").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)UPDATE conversations\s+SET summary = COALESCE\(\$2, summary\)`).
		WithArgs(sqlmock.AnyArg(), summary).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := r.AppendExchange(context.Background(), convID, "c-user", "c-bot", &summary)
	require.NoError(t, err)
}

func TestMessageRepo_AppendExchange_RollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)
	r := NewMessageRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO messages`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO messages`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := r.AppendExchange(context.Background(), uuid.New(), "a", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert assistant message")
}

func TestMessageRepo_ListByConversation(t *testing.T) {
	db, mock := newMock(t)
	r := NewMessageRepo(db)

	convID := uuid.New()
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)FROM messages\s+WHERE conversation_id = \$1\s+ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender", "encrypted_text", "created_at"}).
			AddRow(uuid.NewString(), convID.String(), "user", "c1", t0).
			AddRow(uuid.NewString(), convID.String(), "assistant", "c2", t0.Add(time.Second)))

	got, err := r.ListByConversation(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.SenderUser, got[0].Sender)
	assert.Equal(t, model.SenderAssistant, got[1].Sender)
	assert.Equal(t, "c2", got[1].Ciphertext)
}
