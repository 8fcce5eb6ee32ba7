package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmate/server/internal/model"
)

var journalCols = []string{"id", "user_id", "title", "description", "mood", "tags", "created_at", "updated_at"}

func TestMoodRepo_Latest_Empty(t *testing.T) {
	db, mock := newMock(t)
	r := NewMoodRepo(db)

	mock.ExpectQuery(`(?s)FROM mood_logs\s+WHERE user_id = \$1\s+ORDER BY created_at DESC\s+LIMIT 1`).
		WillReturnError(sql.ErrNoRows)

	_, err := r.Latest(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMoodRepo_UpdateScopedToOwner(t *testing.T) {
	db, mock := newMock(t)
	r := NewMoodRepo(db)

	userID, id := uuid.New(), uuid.New()
	mock.ExpectQuery(`(?s)UPDATE mood_logs SET mood = \$3\s+WHERE id = \$1 AND user_id = \$2`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "mood", "created_at"}).
			AddRow(id.String(), userID.String(), 4, time.Now()))

	got, err := r.Update(context.Background(), userID, id, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Mood)
}

func TestMoodRepo_Delete_Foreign(t *testing.T) {
	db, mock := newMock(t)
	r := NewMoodRepo(db)

	mock.ExpectExec(`DELETE FROM mood_logs WHERE id = \$1 AND user_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestJournalRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	r := NewJournalRepo(db)

	userID := uuid.New()
	mood := 3
	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO journal_entries \(user_id, title, description, mood, tags\)`).
		WithArgs(sqlmock.AnyArg(), "Day one", "Felt ok", 3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(journalCols).
			AddRow(uuid.NewString(), userID.String(), "Day one", "Felt ok", 3, "{calm,walk}", now, now))

	got, err := r.Create(context.Background(), model.JournalEntry{
		UserID:      userID,
		Title:       "Day one",
		Description: "Felt ok",
		Mood:        &mood,
		Tags:        []string{"calm", "walk"},
	})
	require.NoError(t, err)
	require.NotNil(t, got.Mood)
	assert.Equal(t, 3, *got.Mood)
	assert.Equal(t, []string{"calm", "walk"}, got.Tags)
}

func TestJournalRepo_Get_NullMoodAndEmptyTags(t *testing.T) {
	db, mock := newMock(t)
	r := NewJournalRepo(db)

	userID, id := uuid.New(), uuid.New()
	now := time.Now()
	mock.ExpectQuery(`(?s)FROM journal_entries WHERE id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows(journalCols).
			AddRow(id.String(), userID.String(), "t", "d", nil, "{}", now, now))

	got, err := r.Get(context.Background(), userID, id)
	require.NoError(t, err)
	assert.Nil(t, got.Mood)
	assert.Equal(t, []string{}, got.Tags)
}

func TestJournalRepo_Update_PartialPatch(t *testing.T) {
	db, mock := newMock(t)
	r := NewJournalRepo(db)

	userID, id := uuid.New(), uuid.New()
	now := time.Now()
	title := "Renamed"
	mock.ExpectQuery(`(?s)UPDATE journal_entries\s+SET title = COALESCE\(\$3, title\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Renamed", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(journalCols).
			AddRow(id.String(), userID.String(), "Renamed", "d", 2, "{x}", now, now))

	got, err := r.Update(context.Background(), userID, id, model.JournalPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, []string{"x"}, got.Tags)
}
