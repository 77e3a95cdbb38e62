// Package translate renders dynamic answer text into the visitor's language
// through an external translation API, with caching in front of it.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/icare-life/carebot/internal/errors"
)

// Translator calls the translation HTTP API. Identical requests are served
// from the cache keyed by text and target language.
type Translator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      Cache
	log        *slog.Logger
}

// NewTranslator constructs a Translator. cache may be nil to disable caching.
func NewTranslator(baseURL, apiKey string, timeout time.Duration, cache Cache, log *slog.Logger) *Translator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Translator{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		log:        log,
	}
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate returns text rendered into targetLanguage. The caller keeps the
// original text on error, so a broken translator degrades to untranslated
// answers rather than lost ones.
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" || targetLanguage == "" {
		return text, nil
	}

	key := cacheKey(text, targetLanguage)
	if t.cache != nil {
		if cached, ok := t.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	translated, err := t.translateOnce(ctx, text, targetLanguage)
	if err != nil {
		return "", err
	}

	if t.cache != nil {
		t.cache.Set(ctx, key, translated)
	}

	return translated, nil
}

func (t *Translator) translateOnce(ctx context.Context, text, targetLanguage string) (string, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("target", targetLanguage)
	params.Set("format", "text")
	if t.apiKey != "" {
		params.Set("key", t.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewTranslationError(targetLanguage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewTranslationError(targetLanguage, fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", apperrors.NewTranslationError(targetLanguage, fmt.Errorf("decode response: %w", err))
	}

	if len(decoded.Data.Translations) == 0 {
		return "", apperrors.NewTranslationError(targetLanguage, fmt.Errorf("empty translation set"))
	}

	return decoded.Data.Translations[0].TranslatedText, nil
}
