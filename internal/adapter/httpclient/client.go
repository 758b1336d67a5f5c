// Package httpclient wraps net/http with retries and a circuit breaker for the
// pipeline's download sources.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/wind-repower-usa/internal/observability"
	"github.com/sony/gobreaker"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrServer      = errors.New("server error")
	ErrStatus      = errors.New("unexpected status code")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Backoff controls retry timing. Delays start at Initial and double up to Max.
type Backoff struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

// DefaultBackoff retries three times between 200ms and 5s.
var DefaultBackoff = Backoff{MaxRetries: 3, Initial: 200 * time.Millisecond, Max: 5 * time.Second}

// Client issues requests against a single upstream source.
type Client struct {
	source  string
	http    *http.Client
	backoff Backoff
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
}

// New creates a Client named after source. The name labels metrics and the
// circuit breaker.
func New(source string, hc *http.Client, backoff Backoff, metrics *observability.Metrics) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{source: source, http: hc, backoff: backoff, metrics: metrics}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.CircuitState.WithLabelValues(name).Set(float64(to))
		},
	})
	metrics.CircuitState.WithLabelValues(source).Set(float64(gobreaker.StateClosed))
	return c
}

// Source returns the upstream name.
func (c *Client) Source() string {
	return c.source
}

// Do sends the request built by build, retrying transport errors, 429 and 5xx
// responses with exponential backoff. Any other non-2xx status fails
// immediately. The caller must close the response body.
func (c *Client) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	delay := c.backoff.Initial
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := c.execute(req)
		if err == nil {
			c.metrics.DownloadAttempts.WithLabelValues(c.source, "success").Inc()
			return resp, nil
		}
		c.metrics.DownloadAttempts.WithLabelValues(c.source, "error").Inc()

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, c.source, err)
		}
		if !retryable(err) || attempt >= c.backoff.MaxRetries || ctx.Err() != nil {
			return nil, err
		}
		if !retry.SleepWithContext(ctx, delay) {
			return nil, ctx.Err()
		}
		delay = retry.NextBackoff(delay, c.backoff.Max)
	}
}

func (c *Client) execute(req *http.Request) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %d %s", ErrServer, resp.StatusCode, body)
		default:
			return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
		}
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// StatusError is returned for non-retryable responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

func retryable(err error) bool {
	var se *StatusError
	return !errors.As(err, &se)
}
