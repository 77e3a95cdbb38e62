// Package genai provides the generative fallback used when the curated
// corpus has no answer for a visitor question.
package genai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	apperrors "github.com/icare-life/carebot/internal/errors"
	"github.com/icare-life/carebot/pkg/metrics"
)

const systemPrompt = "You are a caregiving education assistant. Answer only questions about " +
	"health, caregiving and elder care, in two or three short sentences a family " +
	"caregiver can act on. If the question is outside those topics, say you can " +
	"only help with caregiving and health questions. Never give a diagnosis or " +
	"prescribe treatment; advise seeing a clinician for anything urgent."

var errEmptyCompletion = errors.New("completion contained no choices")

// chatService is the slice of the OpenAI client the advisor uses. Tests
// substitute a scripted implementation.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

type openaiChat struct {
	client openai.Client
}

func (s openaiChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *completion, nil
}

// Advisor answers questions through the OpenAI chat completion API.
type Advisor struct {
	chat  chatService
	model string
	log   *slog.Logger
}

// NewAdvisor constructs an Advisor talking to the real OpenAI API.
func NewAdvisor(apiKey, model string, log *slog.Logger) *Advisor {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if log == nil {
		log = slog.Default()
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Advisor{chat: openaiChat{client: client}, model: model, log: log}
}

// Advise returns a short generated answer for the question, or an upstream
// error when the API fails or produces nothing.
func (a *Advisor) Advise(ctx context.Context, question string) (string, error) {
	started := time.Now()
	defer func() {
		metrics.RecordLookupDuration("advisor", time.Since(started))
	}()

	completion, err := a.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(question),
		},
	})
	if err != nil {
		return "", apperrors.NewUpstreamError("openai", err)
	}

	if len(completion.Choices) == 0 {
		return "", apperrors.NewUpstreamError("openai", errEmptyCompletion)
	}

	answer := strings.TrimSpace(completion.Choices[0].Message.Content)
	if answer == "" {
		return "", apperrors.NewUpstreamError("openai", errEmptyCompletion)
	}

	return answer, nil
}
