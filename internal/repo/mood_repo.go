package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
)

// MoodRepo defines the interface for mood log operations. Every query is
// scoped to the owning user; foreign rows read as ErrNotFound.
type MoodRepo interface {
	Create(ctx context.Context, userID uuid.UUID, mood int) (model.MoodLog, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.MoodLog, error)
	Latest(ctx context.Context, userID uuid.UUID) (model.MoodLog, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.MoodLog, error)
	Update(ctx context.Context, userID, id uuid.UUID, mood int) (model.MoodLog, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type moodRepo struct {
	db *sql.DB
}

// NewMoodRepo creates a new MoodRepo instance
func NewMoodRepo(db *sql.DB) MoodRepo {
	return &moodRepo{db: db}
}

func scanMood(row interface{ Scan(...any) error }) (model.MoodLog, error) {
	var m model.MoodLog
	if err := row.Scan(&m.ID, &m.UserID, &m.Mood, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.MoodLog{}, model.ErrNotFound
		}
		return model.MoodLog{}, fmt.Errorf("failed to scan mood log: %w", err)
	}
	return m, nil
}

func (r *moodRepo) Create(ctx context.Context, userID uuid.UUID, mood int) (model.MoodLog, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO mood_logs (user_id, mood)
		VALUES ($1, $2)
		RETURNING id, user_id, mood, created_at
	`, userID, mood)
	return scanMood(row)
}

// List returns the user's mood logs newest first.
func (r *moodRepo) List(ctx context.Context, userID uuid.UUID) ([]model.MoodLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, mood, created_at
		FROM mood_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list mood logs: %w", err)
	}
	defer rows.Close()

	out := make([]model.MoodLog, 0)
	for rows.Next() {
		m, err := scanMood(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mood logs: %w", err)
	}
	return out, nil
}

func (r *moodRepo) Latest(ctx context.Context, userID uuid.UUID) (model.MoodLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, mood, created_at
		FROM mood_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	return scanMood(row)
}

func (r *moodRepo) Get(ctx context.Context, userID, id uuid.UUID) (model.MoodLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, mood, created_at
		FROM mood_logs
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	return scanMood(row)
}

func (r *moodRepo) Update(ctx context.Context, userID, id uuid.UUID, mood int) (model.MoodLog, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE mood_logs SET mood = $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, mood, created_at
	`, id, userID, mood)
	return scanMood(row)
}

func (r *moodRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM mood_logs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete mood log: %w", err)
	}
	return requireOneRow(result, model.ErrNotFound)
}
