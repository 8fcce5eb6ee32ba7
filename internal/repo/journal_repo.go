package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mindmate/server/internal/model"
)

// JournalRepo defines the interface for journal entry operations, scoped to the owner.
type JournalRepo interface {
	Create(ctx context.Context, e model.JournalEntry) (model.JournalEntry, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.JournalEntry, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.JournalEntry, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch model.JournalPatch) (model.JournalEntry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type journalRepo struct {
	db *sql.DB
}

// NewJournalRepo creates a new JournalRepo instance
func NewJournalRepo(db *sql.DB) JournalRepo {
	return &journalRepo{db: db}
}

const journalColumns = `id, user_id, title, description, mood, tags, created_at, updated_at`

func scanJournal(row interface{ Scan(...any) error }) (model.JournalEntry, error) {
	var e model.JournalEntry
	var mood sql.NullInt32
	var tags pq.StringArray
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &mood, &tags, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.JournalEntry{}, model.ErrNotFound
		}
		return model.JournalEntry{}, fmt.Errorf("failed to scan journal entry: %w", err)
	}
	if mood.Valid {
		m := int(mood.Int32)
		e.Mood = &m
	}
	e.Tags = []string(tags)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return e, nil
}

func (r *journalRepo) Create(ctx context.Context, e model.JournalEntry) (model.JournalEntry, error) {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO journal_entries (user_id, title, description, mood, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+journalColumns,
		e.UserID, e.Title, e.Description, e.Mood, pq.Array(tags),
	)
	return scanJournal(row)
}

// List returns the user's entries newest first.
func (r *journalRepo) List(ctx context.Context, userID uuid.UUID) ([]model.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+journalColumns+`
		FROM journal_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	out := make([]model.JournalEntry, 0)
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return out, nil
}

func (r *journalRepo) Get(ctx context.Context, userID, id uuid.UUID) (model.JournalEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+journalColumns+` FROM journal_entries WHERE id = $1 AND user_id = $2
	`, id, userID)
	return scanJournal(row)
}

// Update applies the non-nil fields of patch.
func (r *journalRepo) Update(ctx context.Context, userID, id uuid.UUID, patch model.JournalPatch) (model.JournalEntry, error) {
	var tags interface{}
	if patch.Tags != nil {
		t := *patch.Tags
		if t == nil {
			t = []string{}
		}
		tags = pq.Array(t)
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE journal_entries
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    mood = COALESCE($5, mood),
		    tags = COALESCE($6, tags),
		    updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+journalColumns,
		id, userID, patch.Title, patch.Description, patch.Mood, tags,
	)
	return scanJournal(row)
}

func (r *journalRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return requireOneRow(result, model.ErrNotFound)
}
