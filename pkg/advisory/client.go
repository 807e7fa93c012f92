// Package advisory provides the optional safety-note phrasing client. It
// asks an LLM-backed service to render deterministic guidance in a more
// conversational tone. Its output is advisory only: callers always keep
// the engine's own safety notes whether or not this service is reachable.
package advisory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rehab-triage-engine/internal/domain"
)

const cacheKeyPrefix = "triage:advisory:"

// Config represents the phrasing service configuration.
type Config struct {
	BaseURL   string        `json:"base_url"`
	APIKey    string        `json:"api_key"`
	Model     string        `json:"model"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit int           `json:"rate_limit"` // requests per second
	RedisURL  string        `json:"redis_url"`  // optional phrase cache
	CacheTTL  time.Duration `json:"cache_ttl"`
}

// Client calls the phrasing service through a circuit breaker and rate
// limiter, with an optional Redis cache for repeated phrase requests.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      *redis.Client
	logger     *logrus.Logger
}

// NewClient creates a new phrasing client.
func NewClient(config Config, logger *logrus.Logger) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 24 * time.Hour
	}

	var cache *redis.Client
	if config.RedisURL != "" {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing advisory redis url: %w", err)
		}
		cache = redis.NewClient(opts)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "advisory-phrasing",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Advisory circuit breaker state changed")
		},
	})

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:    breaker,
		cache:      cache,
		logger:     logger,
	}, nil
}

type phraseRequest struct {
	Model     string   `json:"model,omitempty"`
	RiskLevel string   `json:"risk_level"`
	Notes     []string `json:"notes"`
}

type phraseResponse struct {
	Text string `json:"text"`
}

// PhraseSafetyNote returns an advisory rendering of the given guidance.
// Errors mean "no phrased text available" and are safe to ignore.
func (c *Client) PhraseSafetyNote(ctx context.Context, riskLevel domain.RiskLevel, notes []string) (string, error) {
	key := c.cacheKey(riskLevel, notes)

	if cached, ok := c.fromCache(ctx, key); ok {
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for advisory rate limit: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.phrase(ctx, riskLevel, notes)
	})
	if err != nil {
		return "", fmt.Errorf("phrasing safety note: %w", err)
	}

	text := result.(string)
	c.toCache(ctx, key, text)
	return text, nil
}

func (c *Client) phrase(ctx context.Context, riskLevel domain.RiskLevel, notes []string) (string, error) {
	body, err := json.Marshal(phraseRequest{
		Model:     c.config.Model,
		RiskLevel: riskLevel.String(),
		Notes:     notes,
	})
	if err != nil {
		return "", fmt.Errorf("encoding phrase request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/phrase", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building phrase request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling phrasing service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("phrasing service returned status %d", resp.StatusCode)
	}

	var decoded phraseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding phrase response: %w", err)
	}
	return decoded.Text, nil
}

func (c *Client) cacheKey(riskLevel domain.RiskLevel, notes []string) string {
	h := sha256.New()
	h.Write([]byte(riskLevel.String()))
	for _, note := range notes {
		h.Write([]byte("\x00"))
		h.Write([]byte(note))
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *Client) fromCache(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	val, err := c.cache.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.WithError(err).Debug("Advisory cache read failed")
		return "", false
	}
	return val, true
}

func (c *Client) toCache(ctx context.Context, key, text string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, text, c.config.CacheTTL).Err(); err != nil {
		c.logger.WithError(err).Debug("Advisory cache write failed")
	}
}

// Close releases the phrase cache connection.
func (c *Client) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}
