package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/model"
	"github.com/mindmate/server/internal/wellness"
)

// JournalAPI is the part of wellness.JournalService the HTTP layer needs.
type JournalAPI interface {
	Create(ctx context.Context, userID uuid.UUID, in wellness.JournalInput) (model.JournalEntry, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.JournalEntry, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.JournalEntry, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch model.JournalPatch) (model.JournalEntry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

var _ JournalAPI = (*wellness.JournalService)(nil)

// JournalHandler serves /journal.
type JournalHandler struct {
	journal JournalAPI
}

// NewJournalHandler creates a journal handler.
func NewJournalHandler(svc JournalAPI) *JournalHandler {
	return &JournalHandler{journal: svc}
}

type journalResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Mood        *int      `json:"mood"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newJournalResponse(e model.JournalEntry) journalResponse {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return journalResponse{
		ID:          e.ID.String(),
		Title:       e.Title,
		Description: e.Description,
		Mood:        e.Mood,
		Tags:        tags,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

type journalCreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Mood        *int     `json:"mood"`
	Tags        []string `json:"tags"`
}

type journalUpdateRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Mood        *int      `json:"mood"`
	Tags        *[]string `json:"tags"`
}

// HandleCreate handles POST /journal
func (h *JournalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req journalCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.journal.Create(r.Context(), uid, wellness.JournalInput{
		Title:       req.Title,
		Description: req.Description,
		Mood:        req.Mood,
		Tags:        req.Tags,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newJournalResponse(e))
}

// HandleList handles GET /journal, newest first.
func (h *JournalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	entries, err := h.journal.List(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]journalResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newJournalResponse(e))
	}
	writeJSON(w, r, http.StatusOK, out)
}

// HandleGet handles GET /journal/{id}
func (h *JournalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.journal.Get(r.Context(), uid, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newJournalResponse(e))
}

// HandleUpdate handles PUT /journal/{id}. Omitted fields are left unchanged.
func (h *JournalHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req journalUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.journal.Update(r.Context(), uid, id, model.JournalPatch{
		Title:       req.Title,
		Description: req.Description,
		Mood:        req.Mood,
		Tags:        req.Tags,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newJournalResponse(e))
}

// HandleDelete handles DELETE /journal/{id}
func (h *JournalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.journal.Delete(r.Context(), uid, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
