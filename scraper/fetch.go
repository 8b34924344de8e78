package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"restaurant-collector/utils"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// Observer receives one event per request attempt. Outcome is "ok",
// "timeout", "network", "http_<status>" or "decode".
type Observer interface {
	ObserveRequest(source, outcome string, latency time.Duration)
}

// Fetcher performs JSON GET requests against one upstream source.
type Fetcher struct {
	Source   string
	Client   *http.Client
	Timeout  time.Duration
	Retry    *utils.RetryConfig
	Observer Observer
}

// NewFetcher creates a Fetcher with the default timeout and three attempts
// with a 500ms backoff base.
func NewFetcher(source string, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		Source:  source,
		Client:  &http.Client{},
		Timeout: DefaultTimeout,
		Retry: &utils.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			Logger:      logger,
			IsTimeout:   IsTimeout,
		},
	}
}

// FetchJSON performs a single GET with a hard timeout and decodes the body
// into out. Parameters with empty values are not sent.
func (f *Fetcher) FetchJSON(ctx context.Context, baseURL string, params map[string]string, out any) error {
	u, err := BuildURL(baseURL, params)
	if err != nil {
		return err
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	outcome := "ok"
	defer func() {
		if f.Observer != nil {
			f.Observer.ObserveRequest(f.Source, outcome, time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		outcome = "network"
		return &NetworkError{URL: redact(u), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
			return &TimeoutError{URL: redact(u), Err: err}
		}
		outcome = "network"
		return &NetworkError{URL: redact(u), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = fmt.Sprintf("http_%d", resp.StatusCode)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &HTTPError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
			return &TimeoutError{URL: redact(u), Err: err}
		}
		outcome = "network"
		return &NetworkError{URL: redact(u), Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		outcome = "decode"
		return &NetworkError{URL: redact(u), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// FetchWithRetry runs FetchJSON under the fetcher's retry policy.
func (f *Fetcher) FetchWithRetry(ctx context.Context, baseURL string, params map[string]string, out any) error {
	if f.Retry == nil {
		return f.FetchJSON(ctx, baseURL, params, out)
	}
	return f.Retry.Do(ctx, f.Source, func(ctx context.Context) error {
		return f.FetchJSON(ctx, baseURL, params, out)
	})
}

// BuildURL appends the non-empty params to baseURL.
func BuildURL(baseURL string, params map[string]string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", baseURL, err)
	}
	q := u.Query()
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact hides API keys before a URL reaches a log line or an error.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, k := range []string{"serviceKey", "api_key"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return strings.Replace(u.String(), "REDACTED", "***", -1)
}
