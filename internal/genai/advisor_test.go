package genai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/icare-life/carebot/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scriptedChat struct {
	completion openai.ChatCompletion
	err        error
	gotParams  openai.ChatCompletionNewParams
}

func (s *scriptedChat) Create(_ context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	s.gotParams = params
	return s.completion, s.err
}

func completionWith(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestAdvise_ReturnsTrimmedAnswer(t *testing.T) {
	chat := &scriptedChat{completion: completionWith("  Keep the room cool and offer water.  ")}
	advisor := &Advisor{chat: chat, model: openai.ChatModelGPT4oMini, log: testLogger()}

	answer, err := advisor.Advise(context.Background(), "how to help with fever?")
	require.NoError(t, err)
	assert.Equal(t, "Keep the room cool and offer water.", answer)

	require.Len(t, chat.gotParams.Messages, 2, "system prompt plus the question")
	assert.Equal(t, openai.ChatModelGPT4oMini, chat.gotParams.Model)
}

func TestAdvise_UpstreamError(t *testing.T) {
	chat := &scriptedChat{err: errors.New("api down")}
	advisor := &Advisor{chat: chat, model: openai.ChatModelGPT4oMini, log: testLogger()}

	_, err := advisor.Advise(context.Background(), "anything")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E300", appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestAdvise_EmptyCompletion(t *testing.T) {
	tests := []struct {
		name       string
		completion openai.ChatCompletion
	}{
		{"no choices", openai.ChatCompletion{}},
		{"blank content", completionWith("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor := &Advisor{chat: &scriptedChat{completion: tt.completion}, model: "test", log: testLogger()}

			_, err := advisor.Advise(context.Background(), "anything")
			assert.ErrorIs(t, err, errEmptyCompletion)
		})
	}
}

func TestNewAdvisor_Defaults(t *testing.T) {
	advisor := NewAdvisor("key", "", nil)

	assert.Equal(t, openai.ChatModelGPT4oMini, advisor.model)
	assert.NotNil(t, advisor.log)
	assert.NotNil(t, advisor.chat)
}
