// Package identity verifies captured visitor identities against the
// account service.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/icare-life/carebot/internal/domain"
	apperrors "github.com/icare-life/carebot/internal/errors"
)

// Client calls the account service HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient constructs an identity client.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type verifyRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type verifyResponse struct {
	Success      bool     `json:"success"`
	Courses      []string `json:"courses"`
	IsMembership bool     `json:"is_membership"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type otpResponse struct {
	Valid bool `json:"valid"`
}

// Verify looks the email up in the account service. A negative result is not
// an error; the visitor simply continues as a guest.
func (c *Client) Verify(ctx context.Context, email, name string) (domain.IdentityResult, error) {
	var result domain.IdentityResult

	err := apperrors.WithRetry(ctx, func() error {
		decoded, err := c.post(ctx, "/accounts/verify", verifyRequest{Email: email, Name: name})
		if err != nil {
			return err
		}

		var payload verifyResponse
		if err := json.Unmarshal(decoded, &payload); err != nil {
			return apperrors.NewUpstreamError("identity", fmt.Errorf("decode response: %w", err))
		}

		result = domain.IdentityResult{
			Success:      payload.Success,
			Courses:      payload.Courses,
			IsMembership: payload.IsMembership,
		}
		return nil
	})
	if err != nil {
		return domain.IdentityResult{}, err
	}

	return result, nil
}

// VerifyOTP checks the one-time code the visitor received by email.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (bool, error) {
	decoded, err := c.post(ctx, "/accounts/verify-otp", otpRequest{Email: email, OTP: otp})
	if err != nil {
		return false, err
	}

	var payload otpResponse
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return false, apperrors.NewUpstreamError("identity", fmt.Errorf("decode response: %w", err))
	}

	return payload.Valid, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("identity", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUpstreamError("identity", fmt.Errorf("status %d", resp.StatusCode))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, apperrors.NewUpstreamError("identity", fmt.Errorf("read response: %w", err))
	}

	return buf.Bytes(), nil
}
