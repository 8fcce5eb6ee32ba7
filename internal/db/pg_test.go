package db

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmate/server/internal/db/migrations"
)

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:****@db:5432/mindmate?sslmode=disable",
		redactDSN("postgres://app:hunter2@db:5432/mindmate?sslmode=disable"))
	assert.Equal(t, "postgres://app@db/mindmate", redactDSN("postgres://app@db/mindmate"))
	assert.Equal(t, "(invalid DATABASE_URL)", redactDSN("postgres://%zz"))
}

func TestOpen_EmptyURL(t *testing.T) {
	_, err := Open(context.Background(), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is empty")
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_accounts.sql", "00002_chat.sql", "00003_wellness.sql"}, files)

	for _, f := range files {
		b, err := fs.ReadFile(migrations.FS, f)
		require.NoError(t, err)
		assert.Contains(t, string(b), "-- +goose Up", f)
		assert.Contains(t, string(b), "-- +goose Down", f)
	}
}
