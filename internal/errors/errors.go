// Package errors defines the application error taxonomy: coded errors with a
// severity, a retryability flag, and the user-visible message the widget may
// show instead of the technical one.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: "That input doesn't look right. Please check it and try again.",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("database error: %s", underlyingMsg),
		UserMessage: "We hit a temporary problem. Please try again in a moment.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewUpstreamError(service string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("upstream service error: %s", service),
		UserMessage: "A service I rely on is temporarily unavailable. Please try again shortly.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewTranslationError(target string, cause error) *AppError {
	return &AppError{
		Code:        "E310",
		Message:     fmt.Sprintf("translation to %s failed", target),
		UserMessage: "I couldn't translate that just now, so I'll answer in English.",
		Severity:    SeverityLow,
		Retryable:   true,
		cause:       cause,
	}
}

func NewSessionError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "Your chat session has expired. Please refresh to start a new one.",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("You're sending messages a bit fast. Please wait %d seconds and try again.", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}
