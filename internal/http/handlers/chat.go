package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/mindmate/server/internal/model"
)

type sendRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Message        string    `json:"message"`
}

type sendResponse struct {
	Reply string `json:"reply"`
}

// HandleSend handles POST /chat/send
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ConversationID == uuid.Nil {
		writeDomainError(w, r, model.Invalid("conversation_id", "is required"))
		return
	}
	reply, err := h.chat.Send(r.Context(), uid, req.ConversationID, req.Message)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sendResponse{Reply: reply})
}

type messageLine struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HandleMessages handles GET /chat/{id}/messages. Timestamps are rendered in
// the display time zone.
func (h *ChatHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lines, err := h.chat.Messages(r.Context(), uid, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	loc := h.chat.Location()
	out := make([]messageLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, messageLine{
			ID:        l.ID.String(),
			Role:      string(l.Sender),
			Content:   l.Text,
			Timestamp: l.CreatedAt.In(loc).Format(time.RFC3339),
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

// HandleExportPDF handles GET /chat/{id}/export-pdf
func (h *ChatHandler) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.chat.ExportPDF(r.Context(), uid, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="conversation_%s.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("write pdf")
	}
}
