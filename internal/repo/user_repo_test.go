package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmate/server/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var accountCols = []string{
	"id", "email", "password_hash", "is_verified", "is_active", "auth_provider",
	"is_google_linked", "first_name", "last_name", "refresh_token_hash", "created_at",
}

func TestUserRepo_GetByEmail_Found(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	id := uuid.New()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT .* FROM users WHERE lower\(email\) = \$1`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(id.String(), "a@x.com", "hash", true, true, "local", false, "Ann", nil, nil, created))

	acc, err := r.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, id, acc.ID)
	assert.Equal(t, model.ProviderLocal, acc.AuthProvider)
	require.NotNil(t, acc.PasswordHash)
	assert.True(t, acc.HasPassword())
	require.NotNil(t, acc.FirstName)
	assert.Equal(t, "Ann", *acc.FirstName)
	assert.Nil(t, acc.LastName)
	assert.Nil(t, acc.RefreshTokenHash)
	assert.Equal(t, created, acc.CreatedAt)
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	mock.ExpectQuery(`(?s)SELECT .* FROM users WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := r.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestUserRepo_Create_UniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	mock.ExpectQuery(`(?s)INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	_, err := r.Create(context.Background(), model.NewAccount{Email: "a@x.com"})
	assert.ErrorIs(t, err, model.ErrDuplicateEmail)
}

func TestUserRepo_Create_DefaultsProvider(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	id := uuid.New()
	mock.ExpectQuery(`(?s)INSERT INTO users`).
		WithArgs("a@x.com", sqlmock.AnyArg(), false, "local", false, nil, nil).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(id.String(), "a@x.com", "hash", false, true, "local", false, nil, nil, nil, time.Now()))

	hash := "hash"
	acc, err := r.Create(context.Background(), model.NewAccount{Email: "a@x.com", PasswordHash: &hash})
	require.NoError(t, err)
	assert.Equal(t, id, acc.ID)
	assert.False(t, acc.IsVerified)
}

func TestUserRepo_Create_OtherError(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	mock.ExpectQuery(`(?s)INSERT INTO users`).WillReturnError(errors.New("db down"))

	_, err := r.Create(context.Background(), model.NewAccount{Email: "a@x.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrDuplicateEmail)
	assert.Contains(t, err.Error(), "db down")
}

func TestUserRepo_RotateRefreshTokenHash(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)
	id := uuid.New()

	mock.ExpectExec(`(?s)UPDATE users SET refresh_token_hash = \$3\s+WHERE id = \$1 AND refresh_token_hash = \$2`).
		WithArgs(sqlmock.AnyArg(), "old", "new").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)UPDATE users SET refresh_token_hash = \$3`).
		WithArgs(sqlmock.AnyArg(), "old", "newer").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.RotateRefreshTokenHash(context.Background(), id, "old", "new")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.RotateRefreshTokenHash(context.Background(), id, "old", "newer")
	require.NoError(t, err)
	assert.False(t, ok, "stale hash must not rotate")
}

func TestUserRepo_ClearRefreshTokenHash(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`(?s)UPDATE users SET refresh_token_hash = NULL`).
		WithArgs(sqlmock.AnyArg(), "h").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := r.ClearRefreshTokenHash(context.Background(), uuid.New(), "h")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepo_SetRefreshTokenHash_NotFound(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET refresh_token_hash = \$2 WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.SetRefreshTokenHash(context.Background(), uuid.New(), "h")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestUserRepo_SetPasswordIfUnset(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`(?s)UPDATE users SET password_hash = \$2\s+WHERE id = \$1 AND \(password_hash IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.SetPasswordIfUnset(context.Background(), uuid.New(), "hash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserRepo_LinkGoogle(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	first := "Ann"
	mock.ExpectExec(`(?s)UPDATE users\s+SET is_google_linked = true.*WHERE id = \$1 AND is_google_linked = false`).
		WithArgs(sqlmock.AnyArg(), "Ann", nil, "refresh-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := r.LinkGoogle(context.Background(), uuid.New(), &first, nil, "refresh-hash")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepo_UpdateProfile(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)

	id := uuid.New()
	mock.ExpectQuery(`(?s)UPDATE users\s+SET first_name = COALESCE\(\$2, first_name\)`).
		WithArgs(sqlmock.AnyArg(), nil, "Lee").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(id.String(), "a@x.com", nil, true, true, "google", true, "Ann", "Lee", nil, time.Now()))

	last := "Lee"
	acc, err := r.UpdateProfile(context.Background(), id, model.AccountPatch{LastName: &last})
	require.NoError(t, err)
	assert.False(t, acc.HasPassword())
	assert.Equal(t, "Lee", *acc.LastName)
}
