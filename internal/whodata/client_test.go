package whodata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func whoServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchLifeExpectancy_PicksLatestYear(t *testing.T) {
	server := whoServer(t, map[string]string{
		"/indicators/life-expectancy": `{"value":[
			{"SpatialDim":"FRA","TimeDim":2015,"NumericValue":82.3},
			{"SpatialDim":"FRA","TimeDim":2021,"NumericValue":82.5},
			{"SpatialDim":"FRA","TimeDim":2019,"NumericValue":82.9}
		]}`,
	})

	client := NewClient(server.URL, time.Second, testLogger())

	life, err := client.FetchLifeExpectancy(context.Background(), "FRA")
	require.NoError(t, err)
	assert.Equal(t, "FRA", life.Country)
	assert.Equal(t, 2021, life.Year)
	assert.Equal(t, 82.5, life.Years)
}

func TestFetchLifeExpectancy_NoData(t *testing.T) {
	server := whoServer(t, map[string]string{
		"/indicators/life-expectancy": `{"value":[]}`,
	})

	client := NewClient(server.URL, time.Second, testLogger())

	_, err := client.FetchLifeExpectancy(context.Background(), "XXX")
	assert.Error(t, err)
}

func TestFetchTopics_SearchFilter(t *testing.T) {
	server := whoServer(t, map[string]string{
		"/topics": `{"topics":[
			{"id":"dementia","name":"Dementia","url":"https://who.int/dementia"},
			{"id":"diabetes","name":"Diabetes","url":"https://who.int/diabetes"},
			{"id":"ageing","name":"Ageing and health","url":"https://who.int/ageing"}
		]}`,
	})

	client := NewClient(server.URL, time.Second, testLogger())
	ctx := context.Background()

	all, err := client.FetchTopics(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := client.FetchTopics(ctx, "DEMEN")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "dementia", found[0].ID)

	none, err := client.FetchTopics(ctx, "cardiology")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFetchTopicDetails_GathersFeeds(t *testing.T) {
	server := whoServer(t, map[string]string{
		"/topics/dementia": `{"topic":{"id":"dementia","name":"Dementia","url":"https://who.int/dementia"}}`,
		"/topics/dementia/news": `{"items":[
			{"title":"New guidance","summary":"...","url":"https://who.int/news/1","date":"2026-07-01"}
		]}`,
		"/topics/dementia/statistics":  `{"items":[{"title":"55 million affected","url":"https://who.int/stats/1"}]}`,
		"/topics/dementia/fact-sheets": `{"items":[{"title":"Dementia fact sheet","url":"https://who.int/facts/1"}]}`,
	})

	client := NewClient(server.URL, time.Second, testLogger())

	details, err := client.FetchTopicDetails(context.Background(), "dementia")
	require.NoError(t, err)
	assert.Equal(t, "Dementia", details.Topic.Name)
	require.Len(t, details.News, 1)
	assert.Equal(t, "New guidance", details.News[0].Title)
	assert.Len(t, details.Stats, 1)
	assert.Len(t, details.Facts, 1)
}

func TestFetchTopicDetails_FailedFeedStaysEmpty(t *testing.T) {
	server := whoServer(t, map[string]string{
		"/topics/dementia":      `{"topic":{"id":"dementia","name":"Dementia"}}`,
		"/topics/dementia/news": `{"items":[{"title":"New guidance","url":"https://who.int/news/1"}]}`,
		// statistics and fact-sheets answer 404
	})

	client := NewClient(server.URL, time.Second, testLogger())

	details, err := client.FetchTopicDetails(context.Background(), "dementia")
	require.NoError(t, err, "feed failures degrade, they do not fail the call")
	assert.Len(t, details.News, 1)
	assert.Empty(t, details.Stats)
	assert.Empty(t, details.Facts)
}

func TestFetchTopicDetails_UnknownTopic(t *testing.T) {
	server := whoServer(t, map[string]string{})

	client := NewClient(server.URL, time.Second, testLogger())

	_, err := client.FetchTopicDetails(context.Background(), "nope")
	assert.Error(t, err)
}
