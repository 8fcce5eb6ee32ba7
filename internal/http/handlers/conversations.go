package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mindmate/server/internal/chat"
	"github.com/mindmate/server/internal/middleware"
	"github.com/mindmate/server/internal/model"
)

// ChatAPI is the part of chat.Service the HTTP layer needs.
type ChatAPI interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	Create(ctx context.Context, userID uuid.UUID, title string) (model.Conversation, error)
	Rename(ctx context.Context, userID, id uuid.UUID, title string) (model.Conversation, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]model.ChatLine, error)
	Send(ctx context.Context, userID, conversationID uuid.UUID, message string) (string, error)
	ExportPDF(ctx context.Context, userID, conversationID uuid.UUID) ([]byte, error)
	Location() *time.Location
}

var _ ChatAPI = (*chat.Service)(nil)

// ChatHandler serves conversations and chat messages.
type ChatHandler struct {
	chat ChatAPI
}

// NewChatHandler creates a chat handler.
func NewChatHandler(svc ChatAPI) *ChatHandler {
	return &ChatHandler{chat: svc}
}

type conversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newConversationResponse(c model.Conversation) conversationResponse {
	return conversationResponse{
		ID:        c.ID.String(),
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

// userID reads the authenticated user from the context.
func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeDomainError(w, r, model.ErrUnauthenticated)
	}
	return id, ok
}

// HandleListConversations handles GET /conversations
func (h *ChatHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	convs, err := h.chat.List(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, newConversationResponse(c))
	}
	writeJSON(w, r, http.StatusOK, out)
}

type titleRequest struct {
	Title string `json:"title"`
}

// HandleCreateConversation handles POST /conversations. The body is optional.
func (h *ChatHandler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	c, err := h.chat.Create(r.Context(), uid, req.Title)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newConversationResponse(c))
}

// HandleRenameConversation handles PATCH /conversations/{id}
func (h *ChatHandler) HandleRenameConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.chat.Rename(r.Context(), uid, id, req.Title); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Renamed"})
}

// HandleDeleteConversation handles DELETE /conversations/{id}
func (h *ChatHandler) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.chat.Delete(r.Context(), uid, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{Message: "Deleted"})
}
