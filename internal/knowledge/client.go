// Package knowledge queries the curated course corpus for answer candidates.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/icare-life/carebot/internal/domain"
	apperrors "github.com/icare-life/carebot/internal/errors"
	"github.com/icare-life/carebot/pkg/metrics"
)

// Client calls the knowledge base HTTP API with retry and a circuit breaker
// so a flapping upstream degrades to the fallback advisor instead of
// stalling conversations.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *apperrors.CircuitBreaker
	log        *slog.Logger
}

// NewClient constructs a knowledge base client.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    apperrors.NewCircuitBreaker(),
		log:        log,
	}
}

type lookupRequest struct {
	Question      string `json:"question"`
	Language      string `json:"language"`
	KnowledgeBase string `json:"knowledge_base"`
}

type lookupResponse struct {
	Answers []answerPayload `json:"answers"`
}

type answerPayload struct {
	Category         string   `json:"category"`
	Response         string   `json:"response"`
	SourceReferences []string `json:"source_references"`
}

// Lookup asks the knowledge base for answer candidates to a visitor question.
// An empty slice with a nil error means the corpus has nothing relevant.
func (c *Client) Lookup(ctx context.Context, question, languageLabel, knowledgeBase string) ([]domain.AnswerCandidate, error) {
	started := time.Now()
	defer func() {
		metrics.RecordLookupDuration("knowledge", time.Since(started))
	}()

	var candidates []domain.AnswerCandidate

	err := c.breaker.Call(func() error {
		return apperrors.WithRetry(ctx, func() error {
			found, err := c.lookupOnce(ctx, question, languageLabel, knowledgeBase)
			if err != nil {
				return err
			}
			candidates = found
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return candidates, nil
}

func (c *Client) lookupOnce(ctx context.Context, question, languageLabel, knowledgeBase string) ([]domain.AnswerCandidate, error) {
	payload, err := json.Marshal(lookupRequest{
		Question:      question,
		Language:      languageLabel,
		KnowledgeBase: knowledgeBase,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/answers", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("knowledge", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("knowledge base returned non-200",
			slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, apperrors.NewUpstreamError("knowledge", fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.NewUpstreamError("knowledge", fmt.Errorf("decode response: %w", err))
	}

	candidates := make([]domain.AnswerCandidate, 0, len(decoded.Answers))
	for _, answer := range decoded.Answers {
		candidates = append(candidates, domain.AnswerCandidate{
			Category:         answer.Category,
			ResponseText:     answer.Response,
			SourceReferences: answer.SourceReferences,
		})
	}

	return candidates, nil
}
