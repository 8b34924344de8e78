// Package places is the client for the SerpAPI Google Maps search engine.
package places

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"restaurant-collector/models"
	"restaurant-collector/scraper"
	"restaurant-collector/utils"
)

const (
	DefaultURL = "https://serpapi.com/search.json"
	SourceName = "SerpAPI"

	// MaxQueryLength is the query length limit, in characters.
	MaxQueryLength = 100

	zoom     = 16
	language = "ko"
)

// Cache stores raw search responses between runs.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

type response struct {
	LocalResults []models.PlaceResult `json:"local_results"`
	Error        string               `json:"error"`
}

// Client searches places around a coordinate.
type Client struct {
	baseURL string
	apiKey  string
	limiter *utils.RateLimiter
	fetcher *scraper.Fetcher
	cb      *gobreaker.CircuitBreaker[[]models.PlaceResult]
	cache   Cache
	logger  *utils.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache serves repeated queries from c.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// New creates a Client. baseURL may be empty for the public endpoint.
func New(baseURL, apiKey string, limiter *utils.RateLimiter, fetcher *scraper.Fetcher, logger *utils.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: limiter,
		fetcher: fetcher,
		logger:  logger,
	}
	c.cb = gobreaker.NewCircuitBreaker[[]models.PlaceResult](gobreaker.Settings{
		Name:        "serpapi",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Quota and cancellation say nothing about the API's health.
			var quota *utils.QuotaExceededError
			return err == nil || errors.As(err, &quota) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[places] circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns the places matching query near (lat, lon). The result is
// never nil on success.
func (c *Client) Search(ctx context.Context, query, lat, lon string) ([]models.PlaceResult, error) {
	params := map[string]string{
		"engine":  "google_maps",
		"q":       TruncateQuery(query),
		"ll":      fmt.Sprintf("@%s,%s,%dz", lat, lon, zoom),
		"type":    "search",
		"hl":      language,
		"api_key": c.apiKey,
	}
	key := cacheKey(params)

	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			var results []models.PlaceResult
			if err := json.Unmarshal(raw, &results); err == nil {
				c.logger.Debug("[places] cache hit: %q", params["q"])
				return nonNil(results), nil
			}
		}
	}

	results, err := c.cb.Execute(func() ([]models.PlaceResult, error) {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx); err != nil {
				return nil, err
			}
		}
		var resp response
		if err := c.fetcher.FetchWithRetry(ctx, c.baseURL, params, &resp); err != nil {
			return nil, err
		}
		if resp.Error != "" && len(resp.LocalResults) == 0 {
			// SerpAPI reports "no results" through the error field too.
			if resp.Error == noResults {
				return []models.PlaceResult{}, nil
			}
			return nil, &scraper.UpstreamError{Source: SourceName, Message: resp.Error}
		}
		return resp.LocalResults, nil
	})
	if err != nil {
		return nil, err
	}
	results = nonNil(results)

	if c.cache != nil {
		if raw, err := json.Marshal(results); err == nil {
			if err := c.cache.Set(key, raw); err != nil {
				c.logger.Warn("[places] cache write failed: %v", err)
			}
		}
	}
	return results, nil
}

const noResults = "Google hasn't returned any results for this query."

// TruncateQuery cuts q to MaxQueryLength characters.
func TruncateQuery(q string) string {
	r := []rune(q)
	if len(r) <= MaxQueryLength {
		return q
	}
	return string(r[:MaxQueryLength])
}

func cacheKey(params map[string]string) string {
	return "serp:" + params["q"] + "|" + params["ll"] + "|" + params["hl"]
}

func nonNil(r []models.PlaceResult) []models.PlaceResult {
	if r == nil {
		return []models.PlaceResult{}
	}
	return r
}
