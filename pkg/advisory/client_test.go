package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehab-triage-engine/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestPhraseSafetyNote(t *testing.T) {
	var received phraseRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "/v1/phrase", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(phraseResponse{Text: "Take it slow and steady this week."})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		Model:     "phrase-1",
		RateLimit: 100,
	}, testLogger())
	require.NoError(t, err)

	text, err := client.PhraseSafetyNote(context.Background(), domain.RiskModerate, []string{"Progress gradually."})
	require.NoError(t, err)
	assert.Equal(t, "Take it slow and steady this week.", text)
	assert.Equal(t, "moderate", received.RiskLevel)
	assert.Equal(t, []string{"Progress gradually."}, received.Notes)
}

func TestPhraseSafetyNoteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, RateLimit: 100}, testLogger())
	require.NoError(t, err)

	_, err = client.PhraseSafetyNote(context.Background(), domain.RiskLow, []string{"note"})
	assert.Error(t, err)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, RateLimit: 1000}, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := client.PhraseSafetyNote(ctx, domain.RiskLow, []string{"note"})
		assert.Error(t, err)
	}

	// The breaker trips after six consecutive failures, so later calls
	// never reach the server.
	assert.Less(t, calls, 10)
}

func TestCacheKeyDistinguishesInputs(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://localhost"}, testLogger())
	require.NoError(t, err)

	a := client.cacheKey(domain.RiskLow, []string{"ab", "c"})
	b := client.cacheKey(domain.RiskLow, []string{"a", "bc"})
	c := client.cacheKey(domain.RiskHigh, []string{"ab", "c"})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestInvalidRedisURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost", RedisURL: "not-a-url"}, testLogger())
	assert.Error(t, err)
}
