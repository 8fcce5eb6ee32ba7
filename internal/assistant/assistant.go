// Package assistant talks to the chat-completion API that produces MindMate's replies.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/mindmate/server/internal/model"
)

const (
	systemPrompt = `You are MindMate, a mental wellness chatbot.
Help with emotional support, CBT-style reflection, stress management.
Do NOT solve math, programming, or technical questions.
If asked unrelated queries, politely say:
"I'm here for mental wellness. Let's focus on how you're feeling."`

	summaryPrompt = "Summarize this conversation in 2-3 sentences focusing on user's feelings and key topics."

	// ContextWindow is how many prior messages accompany a new one.
	ContextWindow = 10
)

// ErrEmptyCompletion is returned when the API answers without any choice.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// Turn is one decrypted message of a conversation.
type Turn struct {
	Sender model.Sender
	Text   string
}

// Completer produces assistant replies and rolling summaries.
type Completer interface {
	Reply(ctx context.Context, summary string, history []Turn, message string) (string, error)
	Summarize(ctx context.Context, transcript []Turn) (string, error)
}

// chatAPI is the subset of *openai.Client used here.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI is a Completer backed by an OpenAI-compatible endpoint.
type OpenAI struct {
	api   chatAPI
	model string
}

// NewOpenAI builds a client. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, modelName string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = openai.GPT4o
	}
	return &OpenAI{api: openai.NewClientWithConfig(cfg), model: modelName}
}

// Reply answers message given the stored summary and prior turns.
func (o *OpenAI) Reply(ctx context.Context, summary string, history []Turn, message string) (string, error) {
	out, err := o.complete(ctx, ReplyMessages(summary, history, message))
	if err != nil {
		return "", fmt.Errorf("reply: %w", err)
	}
	return out, nil
}

// Summarize condenses a transcript into a short summary.
func (o *OpenAI) Summarize(ctx context.Context, transcript []Turn) (string, error) {
	out, err := o.complete(ctx, SummaryMessages(transcript))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

func (o *OpenAI) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ReplyMessages builds the prompt: system prompt, the summary when present,
// the last ContextWindow turns, then the new user message.
func ReplyMessages(summary string, history []Turn, message string) []openai.ChatCompletionMessage {
	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: systemPrompt}}
	if s := strings.TrimSpace(summary); s != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Here's what you already know about the user: " + s,
		})
	}
	if len(history) > ContextWindow {
		history = history[len(history)-ContextWindow:]
	}
	for _, t := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role(t.Sender), Content: t.Text})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
}

// SummaryMessages renders the transcript as "sender: text" lines.
func SummaryMessages(transcript []Turn) []openai.ChatCompletionMessage {
	lines := make([]string, 0, len(transcript))
	for _, t := range transcript {
		lines = append(lines, string(t.Sender)+": "+t.Text)
	}
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: summaryPrompt},
		{Role: openai.ChatMessageRoleUser, Content: strings.Join(lines, "\n")},
	}
}

func role(s model.Sender) string {
	if s == model.SenderAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}
