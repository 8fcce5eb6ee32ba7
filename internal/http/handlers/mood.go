package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
	"github.com/mindmate/server/internal/wellness"
)

// MoodAPI is the part of wellness.MoodService the HTTP layer needs.
type MoodAPI interface {
	Log(ctx context.Context, userID uuid.UUID, mood int) (model.MoodLog, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.MoodLog, error)
	Latest(ctx context.Context, userID uuid.UUID) (model.MoodLog, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.MoodLog, error)
	Update(ctx context.Context, userID, id uuid.UUID, mood *int) (model.MoodLog, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

var _ MoodAPI = (*wellness.MoodService)(nil)

// MoodHandler serves /mood.
type MoodHandler struct {
	moods MoodAPI
}

// NewMoodHandler creates a mood handler.
func NewMoodHandler(svc MoodAPI) *MoodHandler {
	return &MoodHandler{moods: svc}
}

type moodResponse struct {
	ID        string    `json:"id"`
	Mood      int       `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
}

func newMoodResponse(l model.MoodLog) moodResponse {
	return moodResponse{ID: l.ID.String(), Mood: l.Mood, CreatedAt: l.CreatedAt.UTC()}
}

type moodRequest struct {
	Mood *int `json:"mood"`
}

// HandleCreate handles POST /mood
func (h *MoodHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req moodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Mood == nil {
		writeDomainError(w, r, model.Invalid("mood", "is required"))
		return
	}
	l, err := h.moods.Log(r.Context(), uid, *req.Mood)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newMoodResponse(l))
}

// HandleList handles GET /mood, newest first.
func (h *MoodHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	logs, err := h.moods.List(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]moodResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, newMoodResponse(l))
	}
	writeJSON(w, r, http.StatusOK, out)
}

// HandleLatest handles GET /mood/latest
func (h *MoodHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	l, err := h.moods.Latest(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newMoodResponse(l))
}

// HandleGet handles GET /mood/{id}
func (h *MoodHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	l, err := h.moods.Get(r.Context(), uid, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newMoodResponse(l))
}

// HandleUpdate handles PUT /mood/{id}
func (h *MoodHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req moodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.moods.Update(r.Context(), uid, id, req.Mood)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newMoodResponse(l))
}

// HandleDelete handles DELETE /mood/{id}
func (h *MoodHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.moods.Delete(r.Context(), uid, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Mood log deleted successfully"})
}
