package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler_MapsAppErrorToUserMessage(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	msg, retryable := h.Handle(context.Background(), NewUpstreamError("who", errors.New("status 500")))

	assert.Equal(t, "A service I rely on is temporarily unavailable. Please try again shortly.", msg)
	assert.True(t, retryable)
}

func TestHandler_UnwrapsNestedAppError(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	wrapped := fmt.Errorf("fetch life expectancy: %w", NewDatabaseError(errors.New("broken pipe")))
	msg, retryable := h.Handle(context.Background(), wrapped)

	assert.Equal(t, "We hit a temporary problem. Please try again in a moment.", msg)
	assert.True(t, retryable)
}

func TestHandler_UnknownErrorGetsGenericMessage(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	msg, retryable := h.Handle(context.Background(), errors.New("boom"))

	assert.Equal(t, "Something went wrong. Please try again.", msg)
	assert.False(t, retryable)
}

func TestHandler_NilError(t *testing.T) {
	h := NewHandler(nil, false)

	msg, retryable := h.Handle(context.Background(), nil)

	assert.Empty(t, msg)
	assert.False(t, retryable)
}
