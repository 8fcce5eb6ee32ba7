package wellness

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
	"github.com/mindmate/server/internal/repo"
)

const (
	maxJournalTitle = 200
	maxTags         = 20
	maxTagLen       = 40
)

// JournalInput is the payload for creating an entry.
type JournalInput struct {
	Title       string
	Description string
	Mood        *int
	Tags        []string
}

// JournalService manages a user's journal entries, scoped like MoodService.
type JournalService struct {
	repo repo.JournalRepo
}

// NewJournalService creates a new journal service
func NewJournalService(r repo.JournalRepo) *JournalService {
	return &JournalService{repo: r}
}

// cleanTags trims, drops empties and removes duplicates, keeping order.
func cleanTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		if utf8.RuneCountInString(t) > maxTagLen {
			return nil, model.Invalid("tags", fmt.Sprintf("each tag must be at most %d characters", maxTagLen))
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, model.Invalid("tags", fmt.Sprintf("at most %d tags", maxTags))
	}
	return out, nil
}

func checkTitle(title string) error {
	if title == "" {
		return model.Invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxJournalTitle {
		return model.Invalid("title", fmt.Sprintf("must be at most %d characters", maxJournalTitle))
	}
	return nil
}

func (s *JournalService) Create(ctx context.Context, userID uuid.UUID, in JournalInput) (model.JournalEntry, error) {
	e := model.JournalEntry{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Mood:        in.Mood,
	}
	if err := checkTitle(e.Title); err != nil {
		return model.JournalEntry{}, err
	}
	if e.Description == "" {
		return model.JournalEntry{}, model.Invalid("description", "is required")
	}
	if e.Mood != nil {
		if err := checkMood("mood", *e.Mood); err != nil {
			return model.JournalEntry{}, err
		}
	}
	tags, err := cleanTags(in.Tags)
	if err != nil {
		return model.JournalEntry{}, err
	}
	e.Tags = tags
	return s.repo.Create(ctx, e)
}

// List returns entries newest first.
func (s *JournalService) List(ctx context.Context, userID uuid.UUID) ([]model.JournalEntry, error) {
	return s.repo.List(ctx, userID)
}

func (s *JournalService) Get(ctx context.Context, userID, id uuid.UUID) (model.JournalEntry, error) {
	return s.repo.Get(ctx, userID, id)
}

// Update applies a partial update; nil fields are left unchanged.
func (s *JournalService) Update(ctx context.Context, userID, id uuid.UUID, patch model.JournalPatch) (model.JournalEntry, error) {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if err := checkTitle(t); err != nil {
			return model.JournalEntry{}, err
		}
		patch.Title = &t
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		if d == "" {
			return model.JournalEntry{}, model.Invalid("description", "must not be empty")
		}
		patch.Description = &d
	}
	if patch.Mood != nil {
		if err := checkMood("mood", *patch.Mood); err != nil {
			return model.JournalEntry{}, err
		}
	}
	if patch.Tags != nil {
		tags, err := cleanTags(*patch.Tags)
		if err != nil {
			return model.JournalEntry{}, err
		}
		patch.Tags = &tags
	}
	return s.repo.Update(ctx, userID, id, patch)
}

func (s *JournalService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
