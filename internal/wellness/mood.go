// Package wellness implements mood logging and journaling.
package wellness

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
	"github.com/mindmate/server/internal/repo"
)

func checkMood(field string, mood int) error {
	if mood < model.MinMood || mood > model.MaxMood {
		return model.Invalid(field, fmt.Sprintf("must be between %d and %d", model.MinMood, model.MaxMood))
	}
	return nil
}

// MoodService manages a user's mood logs. Every call is scoped to userID;
// logs owned by someone else are reported as not found.
type MoodService struct {
	repo repo.MoodRepo
}

// NewMoodService creates a new mood service
func NewMoodService(r repo.MoodRepo) *MoodService {
	return &MoodService{repo: r}
}

func (s *MoodService) Log(ctx context.Context, userID uuid.UUID, mood int) (model.MoodLog, error) {
	if err := checkMood("mood", mood); err != nil {
		return model.MoodLog{}, err
	}
	return s.repo.Create(ctx, userID, mood)
}

// List returns logs newest first.
func (s *MoodService) List(ctx context.Context, userID uuid.UUID) ([]model.MoodLog, error) {
	return s.repo.List(ctx, userID)
}

func (s *MoodService) Latest(ctx context.Context, userID uuid.UUID) (model.MoodLog, error) {
	return s.repo.Latest(ctx, userID)
}

func (s *MoodService) Get(ctx context.Context, userID, id uuid.UUID) (model.MoodLog, error) {
	return s.repo.Get(ctx, userID, id)
}

// Update changes the rating. A nil mood leaves the log unchanged.
func (s *MoodService) Update(ctx context.Context, userID, id uuid.UUID, mood *int) (model.MoodLog, error) {
	if mood == nil {
		return s.repo.Get(ctx, userID, id)
	}
	if err := checkMood("mood", *mood); err != nil {
		return model.MoodLog{}, err
	}
	return s.repo.Update(ctx, userID, id, *mood)
}

func (s *MoodService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
