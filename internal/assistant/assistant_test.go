package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmate/server/internal/model"
)

type stubAPI struct {
	got  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (s *stubAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.got = req
	return s.resp, s.err
}

func answer(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
	}}
}

func TestReplyMessages_WindowAndSummary(t *testing.T) {
	var history []Turn
	for i := 0; i < 14; i++ {
		sender := model.SenderUser
		if i%2 == 1 {
			sender = model.SenderAssistant
		}
		history = append(history, Turn{Sender: sender, Text: fmt.Sprintf("m%d", i)})
	}

	msgs := ReplyMessages("User is stressed about exams.", history, "hello")

	require.Len(t, msgs, 2+ContextWindow+1)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "You are MindMate")
	assert.Equal(t, "Here's what you already know about the user: User is stressed about exams.", msgs[1].Content)
	assert.Equal(t, "m4", msgs[2].Content, "only the last ten turns are sent")
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[2].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[3].Role)
	assert.Equal(t, "m13", msgs[len(msgs)-2].Content)
	assert.Equal(t, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "hello"}, msgs[len(msgs)-1])
}

func TestReplyMessages_NoSummary(t *testing.T) {
	msgs := ReplyMessages("  ", nil, "hi")
	require.Len(t, msgs, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, "hi", msgs[1].Content)
}

func TestSummaryMessages(t *testing.T) {
	msgs := SummaryMessages([]Turn{
		{Sender: model.SenderUser, Text: "I can't sleep"},
		{Sender: model.SenderAssistant, Text: "That sounds hard"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, summaryPrompt, msgs[0].Content)
	assert.Equal(t, "user: I can't sleep\nassistant: That sounds hard", msgs[1].Content)
}

func TestOpenAI_Reply(t *testing.T) {
	api := &stubAPI{resp: answer("  Let's breathe together.  ")}
	o := &OpenAI{api: api, model: "gpt-4o"}

	out, err := o.Reply(context.Background(), "", nil, "I'm anxious")
	require.NoError(t, err)
	assert.Equal(t, "Let's breathe together.", out)
	assert.Equal(t, "gpt-4o", api.got.Model)
}

func TestOpenAI_Errors(t *testing.T) {
	o := &OpenAI{api: &stubAPI{}, model: "gpt-4o"}
	_, err := o.Summarize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCompletion)

	boom := errors.New("rate limited")
	o = &OpenAI{api: &stubAPI{err: boom}, model: "gpt-4o"}
	_, err = o.Reply(context.Background(), "", nil, "hi")
	assert.ErrorIs(t, err, boom)
}

func TestNewOpenAI_DefaultModel(t *testing.T) {
	o := NewOpenAI("sk-test", "http://localhost:9999/v1", "")
	assert.Equal(t, openai.GPT4o, o.model)
}
