// Package chat owns conversations and the encrypted message exchange with
// the assistant.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindmate/server/internal/assistant"
	"github.com/mindmate/server/internal/model"
	"github.com/mindmate/server/internal/pdf"
	"github.com/mindmate/server/internal/repo"
)

const (
	DefaultTitle  = "New Chat"
	maxTitleLen   = 200
	maxMessageLen = 4000
)

// ErrAssistantUnavailable is returned by Send when no completion backend is
// configured or the backend failed to reply.
var ErrAssistantUnavailable = errors.New("assistant_unavailable")

// Cipher encrypts message bodies before they reach the database.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Service implements conversation CRUD, sending and export.
type Service struct {
	conversations repo.ConversationRepo
	messages      repo.MessageRepo
	cipher        Cipher
	completer     assistant.Completer
	location      *time.Location
	timeout       time.Duration
	pdfFont       string
}

// NewService wires the chat service. completer may be nil, in which case
// Send fails with ErrAssistantUnavailable.
func NewService(
	conversations repo.ConversationRepo,
	messages repo.MessageRepo,
	cipher Cipher,
	completer assistant.Completer,
	location *time.Location,
	timeout time.Duration,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		conversations: conversations,
		messages:      messages,
		cipher:        cipher,
		completer:     completer,
		location:      location,
		timeout:       timeout,
	}
}

// WithPDFFont sets the TrueType font used for exported transcripts.
func (s *Service) WithPDFFont(path string) *Service {
	s.pdfFont = path
	return s
}

// Location is the display timezone for message timestamps.
func (s *Service) Location() *time.Location { return s.location }

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", model.Invalid("title", fmt.Sprintf("must be at most %d characters", maxTitleLen))
	}
	return title, nil
}

// owned loads a conversation and checks it belongs to userID.
func (s *Service) owned(ctx context.Context, userID, id uuid.UUID) (model.Conversation, error) {
	c, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return model.Conversation{}, err
	}
	if c.UserID != userID {
		return model.Conversation{}, model.ErrForbidden
	}
	return c, nil
}

// List returns the user's conversations, most recently active first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	return s.conversations.ListByUser(ctx, userID)
}

// Create starts a conversation; an empty title becomes DefaultTitle.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, title string) (model.Conversation, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return model.Conversation{}, err
	}
	if title == "" {
		title = DefaultTitle
	}
	return s.conversations.Create(ctx, userID, title)
}

// Rename changes the title of an owned conversation.
func (s *Service) Rename(ctx context.Context, userID, id uuid.UUID, title string) (model.Conversation, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return model.Conversation{}, err
	}
	if title == "" {
		return model.Conversation{}, model.Invalid("title", "is required")
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return model.Conversation{}, err
	}
	return s.conversations.Rename(ctx, id, title)
}

// Delete removes an owned conversation and its messages.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.conversations.Delete(ctx, id)
}

// history decrypts all messages of a conversation, oldest first.
func (s *Service) history(ctx context.Context, conversationID uuid.UUID) ([]model.ChatLine, error) {
	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	lines := make([]model.ChatLine, 0, len(msgs))
	for _, m := range msgs {
		text, err := s.cipher.Decrypt(m.Ciphertext)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", m.ID, err)
		}
		lines = append(lines, model.ChatLine{ID: m.ID, Sender: m.Sender, Text: text, CreatedAt: m.CreatedAt})
	}
	return lines, nil
}

// Messages returns the decrypted history of an owned conversation.
func (s *Service) Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]model.ChatLine, error) {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.history(ctx, conversationID)
}

func turns(lines []model.ChatLine) []assistant.Turn {
	out := make([]assistant.Turn, 0, len(lines)+2)
	for _, l := range lines {
		out = append(out, assistant.Turn{Sender: l.Sender, Text: l.Text})
	}
	return out
}

// Send asks the assistant for a reply and stores both messages with the
// refreshed summary. Nothing is written unless the reply succeeds.
func (s *Service) Send(ctx context.Context, userID, conversationID uuid.UUID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", model.Invalid("message", "is required")
	}
	if utf8.RuneCountInString(message) > maxMessageLen {
		return "", model.Invalid("message", fmt.Sprintf("must be at most %d characters", maxMessageLen))
	}
	if s.completer == nil {
		return "", ErrAssistantUnavailable
	}

	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return "", err
	}
	lines, err := s.history(ctx, conversationID)
	if err != nil {
		return "", err
	}
	history := turns(lines)

	var summary string
	if conv.Summary != nil {
		summary = *conv.Summary
	}

	replyCtx, cancel := s.withTimeout(ctx)
	reply, err := s.completer.Reply(replyCtx, summary, history, message)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}

	transcript := append(history,
		assistant.Turn{Sender: model.SenderUser, Text: message},
		assistant.Turn{Sender: model.SenderAssistant, Text: reply},
	)
	var newSummary *string
	sumCtx, cancel := s.withTimeout(ctx)
	sum, err := s.completer.Summarize(sumCtx, transcript)
	cancel()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("conversation_id", conversationID.String()).Msg("summary not updated")
	} else if sum != "" {
		newSummary = &sum
	}

	userCT, err := s.cipher.Encrypt(message)
	if err != nil {
		return "", err
	}
	replyCT, err := s.cipher.Encrypt(reply)
	if err != nil {
		return "", err
	}
	if err := s.messages.AppendExchange(ctx, conversationID, userCT, replyCT, newSummary); err != nil {
		return "", fmt.Errorf("store exchange: %w", err)
	}
	return reply, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ExportPDF renders an owned conversation as a PDF document.
func (s *Service) ExportPDF(ctx context.Context, userID, conversationID uuid.UUID) ([]byte, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	lines, err := s.history(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Render(&buf, pdf.Transcript{
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		Lines:     lines,
		Location:  s.location,
		FontPath:  s.pdfFont,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
