package threshold

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/farewatch-api/pkg/logger"
)

func gatewayReplying(t *testing.T, calls *int32, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(url string) *Service {
	return NewService(Config{
		GatewayURL: url,
		APIKey:     "test-key",
		Model:      "test-model",
		Origin:     "ATL",
	}, logger.NewLogger(nil))
}

func TestSuggestParsesGatewayResponse(t *testing.T) {
	var calls int32
	srv := gatewayReplying(t, &calls,
		`{"recommended_threshold": 650, "confidence": "high", "reasoning": "Transatlantic route with seasonal variance"}`)
	svc := newTestService(srv.URL)

	s := svc.Suggest(context.Background(), "Lisbon", "Portugal", "LIS")
	assert.Equal(t, 650, s.RecommendedThreshold)
	assert.Equal(t, "high", s.Confidence)
}

func TestSuggestCachesPerDestination(t *testing.T) {
	var calls int32
	srv := gatewayReplying(t, &calls, `{"recommended_threshold": 650}`)
	svc := newTestService(srv.URL)

	svc.Suggest(context.Background(), "Lisbon", "Portugal", "LIS")
	svc.Suggest(context.Background(), "Lisbon", "Portugal", "LIS")
	svc.Suggest(context.Background(), "LISBON", "portugal", "LIS")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "repeat lookups are served from cache")

	svc.Suggest(context.Background(), "Porto", "Portugal", "OPO")
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	// Same city served by a different airport is a distinct destination.
	svc.Suggest(context.Background(), "Tokyo", "Japan", "NRT")
	svc.Suggest(context.Background(), "Tokyo", "Japan", "HND")
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestSuggestToleratesMarkdownCodeBlock(t *testing.T) {
	var calls int32
	srv := gatewayReplying(t, &calls,
		"Here you go:\n```json\n{\"recommended_threshold\": 480, \"confidence\": \"medium\", \"reasoning\": \"ok\"}\n```")
	svc := newTestService(srv.URL)

	s := svc.Suggest(context.Background(), "Lisbon", "Portugal", "")
	assert.Equal(t, 480, s.RecommendedThreshold)
}

func TestSuggestClampsToBounds(t *testing.T) {
	var calls int32
	srv := gatewayReplying(t, &calls, `{"recommended_threshold": 5000, "confidence": "high", "reasoning": "x"}`)
	svc := newTestService(srv.URL)
	s := svc.Suggest(context.Background(), "Tokyo", "Japan", "NRT")
	assert.Equal(t, maxThreshold, s.RecommendedThreshold)

	srv2 := gatewayReplying(t, &calls, `{"recommended_threshold": 50, "confidence": "high", "reasoning": "x"}`)
	svc2 := newTestService(srv2.URL)
	s = svc2.Suggest(context.Background(), "Nashville", "USA", "BNA")
	assert.Equal(t, minThreshold, s.RecommendedThreshold)
}

func TestSuggestFallsBackWithoutAPIKey(t *testing.T) {
	svc := NewService(Config{GatewayURL: "http://127.0.0.1:0"}, logger.NewLogger(nil))

	s := svc.Suggest(context.Background(), "Lisbon", "Portugal", "LIS")
	assert.Equal(t, defaultThreshold, s.RecommendedThreshold)
	assert.Equal(t, "low", s.Confidence)
}

func TestSuggestFallsBackOnGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	svc := newTestService(srv.URL)

	s := svc.Suggest(context.Background(), "Lisbon", "Portugal", "LIS")
	assert.Equal(t, defaultThreshold, s.RecommendedThreshold)
	assert.Equal(t, "low", s.Confidence)
}

func TestSuggestFallsBackOnGarbageContent(t *testing.T) {
	var calls int32
	srv := gatewayReplying(t, &calls, "sorry, I cannot help with that")
	svc := newTestService(srv.URL)

	s := svc.Suggest(context.Background(), "Lisbon", "Portugal", "LIS")
	assert.Equal(t, defaultThreshold, s.RecommendedThreshold)
}

func TestParseSuggestionZeroThresholdDefaults(t *testing.T) {
	s, ok := parseSuggestion(`{"confidence": "low", "reasoning": "no idea"}`)
	require.True(t, ok)
	assert.Equal(t, defaultThreshold, s.RecommendedThreshold)
}
