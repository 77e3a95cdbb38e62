// Package whodata serves the widget's health data side panel from public
// World Health Organization feeds.
package whodata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/icare-life/carebot/internal/errors"
)

// Item is one entry of a topic feed.
type Item struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
	Date    string `json:"date,omitempty"`
}

// Topic is a WHO health topic reference.
type Topic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LifeExpectancy carries the headline indicator for a country.
type LifeExpectancy struct {
	Country string  `json:"country"`
	Years   float64 `json:"years"`
	Year    int     `json:"year"`
}

// TopicDetails bundles the feeds shown when a topic is opened. Each list is
// fetched independently; a failed feed arrives empty while the others still
// fill.
type TopicDetails struct {
	Topic Topic  `json:"topic"`
	News  []Item `json:"news"`
	Stats []Item `json:"stats"`
	Facts []Item `json:"facts"`
}

// Client fetches WHO feeds over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient constructs a WHO data client.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type lifeExpectancyResponse struct {
	Value []struct {
		Country string  `json:"SpatialDim"`
		Year    int     `json:"TimeDim"`
		Numeric float64 `json:"NumericValue"`
	} `json:"value"`
}

// FetchLifeExpectancy returns the latest life expectancy indicator for the
// given ISO country code.
func (c *Client) FetchLifeExpectancy(ctx context.Context, countryCode string) (*LifeExpectancy, error) {
	endpoint := c.baseURL + "/indicators/life-expectancy"
	if countryCode != "" {
		endpoint += "?country=" + url.QueryEscape(countryCode)
	}

	var decoded lifeExpectancyResponse
	if err := c.getJSON(ctx, endpoint, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Value) == 0 {
		return nil, fmt.Errorf("no life expectancy data for %q", countryCode)
	}

	latest := decoded.Value[0]
	for _, row := range decoded.Value[1:] {
		if row.Year > latest.Year {
			latest = row
		}
	}

	return &LifeExpectancy{
		Country: latest.Country,
		Years:   latest.Numeric,
		Year:    latest.Year,
	}, nil
}

type topicsResponse struct {
	Topics []Topic `json:"topics"`
}

// FetchTopics returns the WHO health topic index, filtered by the search
// term when one is given.
func (c *Client) FetchTopics(ctx context.Context, search string) ([]Topic, error) {
	var decoded topicsResponse
	if err := c.getJSON(ctx, c.baseURL+"/topics", &decoded); err != nil {
		return nil, err
	}

	if search == "" {
		return decoded.Topics, nil
	}

	needle := strings.ToLower(search)
	filtered := make([]Topic, 0, len(decoded.Topics))
	for _, topic := range decoded.Topics {
		if strings.Contains(strings.ToLower(topic.Name), needle) {
			filtered = append(filtered, topic)
		}
	}

	return filtered, nil
}

type itemsResponse struct {
	Items []Item `json:"items"`
}

// FetchTopicDetails gathers a topic's feeds in parallel. Individual feed
// failures are logged and leave that section empty; the call itself only
// fails when the topic itself cannot be resolved.
func (c *Client) FetchTopicDetails(ctx context.Context, topicID string) (*TopicDetails, error) {
	var topic struct {
		Topic Topic `json:"topic"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/topics/"+url.PathEscape(topicID), &topic); err != nil {
		return nil, err
	}

	details := &TopicDetails{
		Topic: topic.Topic,
		News:  []Item{},
		Stats: []Item{},
		Facts: []Item{},
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		news, err := c.fetchItems(groupCtx, topicID, "news")
		if err != nil {
			c.log.Warn("news fetch failed", slog.String("topic", topicID), slog.Any("error", err))
			return nil
		}
		details.News = news
		return nil
	})
	g.Go(func() error {
		stats, err := c.fetchItems(groupCtx, topicID, "statistics")
		if err != nil {
			c.log.Warn("statistics fetch failed", slog.String("topic", topicID), slog.Any("error", err))
			return nil
		}
		details.Stats = stats
		return nil
	})
	g.Go(func() error {
		facts, err := c.fetchItems(groupCtx, topicID, "fact-sheets")
		if err != nil {
			c.log.Warn("fact sheet fetch failed", slog.String("topic", topicID), slog.Any("error", err))
			return nil
		}
		details.Facts = facts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return details, nil
}

func (c *Client) fetchItems(ctx context.Context, topicID, feed string) ([]Item, error) {
	endpoint := fmt.Sprintf("%s/topics/%s/%s", c.baseURL, url.PathEscape(topicID), feed)

	var decoded itemsResponse
	if err := c.getJSON(ctx, endpoint, &decoded); err != nil {
		return nil, err
	}

	return decoded.Items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewUpstreamError("who", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewUpstreamError("who", fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewUpstreamError("who", fmt.Errorf("decode response: %w", err))
	}

	return nil
}
