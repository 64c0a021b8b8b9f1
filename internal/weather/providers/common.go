package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff between attempts.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used by every provider unless overridden.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errDecode        = errors.New("malformed response body")
)

// jsonClient is a GET-and-decode HTTP client with retries and a circuit
// breaker. Client errors (4xx other than 429) are not retried.
type jsonClient struct {
	http    *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
}

func newJSONClient(name string, client *http.Client, backoff BackoffConfig) *jsonClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &jsonClient{
		http:    client,
		backoff: backoff,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         name,
			MaxRequests:  5,
			Interval:     1 * time.Minute,
			Timeout:      2 * time.Minute,
			IsSuccessful: healthyResult,
		}),
	}
}

// getJSON fetches base?query and decodes the JSON body into out.
func (c *jsonClient) getJSON(ctx context.Context, base string, query url.Values, out any) error {
	if c.http == nil {
		return errNoHTTPClient
	}
	if c.backoff.MaxRetries < 0 || c.backoff.InitialInterval <= 0 {
		return errInvalidConfig
	}

	u := base
	if len(query) > 0 {
		u = base + "?" + query.Encode()
	}

	delay := c.backoff.InitialInterval
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := c.circuit.Execute(func() (interface{}, error) {
			return nil, c.fetch(ctx, u, out)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if !retryable(err) || attempt >= c.backoff.MaxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}
	}
}

func (c *jsonClient) fetch(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

// healthyResult tells the breaker which errors still mean the upstream is up.
// Bad requests say nothing about its health.
func healthyResult(err error) bool {
	return err == nil || errors.Is(err, errUnexpected)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, errUnexpected) && !errors.Is(err, errDecode)
}
