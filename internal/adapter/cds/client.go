// Package cds retrieves ERA5 reanalysis data from the Copernicus Climate Data
// Store. A retrieval is submitted as a task, polled until the server has
// prepared the file and then streamed to disk.
package cds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/httpclient"
	"github.com/couchcryptid/wind-repower-usa/internal/observability"
	"github.com/jonboulle/clockwork"
)

const source = "cds"

var (
	ErrTaskFailed = errors.New("CDS task failed")
	ErrStalled    = errors.New("download stalled")
	ErrIncomplete = errors.New("download incomplete")
)

// Options tune polling and download behaviour.
type Options struct {
	PollInterval time.Duration
	StallTimeout time.Duration
	Clock        clockwork.Clock
}

// Client talks to a CDS API endpoint.
type Client struct {
	creds   Credentials
	http    *httpclient.Client
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Client. Zero options fall back to a 10s poll interval, a 20s
// stall timeout and real time.
func New(creds Credentials, hc *http.Client, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = 20 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Client{
		creds:   creds,
		http:    httpclient.New(source, hc, httpclient.DefaultBackoff, metrics),
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// task is the server's view of a retrieval.
type task struct {
	State         string `json:"state"`
	RequestID     string `json:"request_id"`
	Location      string `json:"location"`
	ContentLength int64  `json:"content_length"`
	Error         struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// Retrieve submits req, waits for the result and writes it to w. It returns
// the number of bytes written.
func (c *Client) Retrieve(ctx context.Context, req Request, w io.Writer) (int64, error) {
	t, err := c.submit(ctx, req)
	if err != nil {
		return 0, err
	}
	t, err = c.wait(ctx, t)
	if err != nil {
		return 0, err
	}
	return c.download(ctx, t, w)
}

func (c *Client) submit(ctx context.Context, req Request) (task, error) {
	body, err := json.Marshal(req.payload())
	if err != nil {
		return task{}, fmt.Errorf("encode request: %w", err)
	}
	endpoint := c.creds.URL + "/resources/" + Dataset

	var t task
	err = c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	}, &t)
	if err != nil {
		return task{}, fmt.Errorf("submit %s: %w", req.Month, err)
	}
	c.logger.Debug("cds request submitted", "month", req.Month.String(), "request_id", t.RequestID, "state", t.State)
	return t, nil
}

func (c *Client) wait(ctx context.Context, t task) (task, error) {
	for {
		switch t.State {
		case "completed":
			return t, nil
		case "failed":
			return task{}, fmt.Errorf("%w: %s %s", ErrTaskFailed, t.Error.Message, t.Error.Reason)
		}
		if t.RequestID == "" {
			return task{}, fmt.Errorf("%w: state %q without request id", ErrTaskFailed, t.State)
		}

		select {
		case <-ctx.Done():
			return task{}, ctx.Err()
		case <-c.opts.Clock.After(c.opts.PollInterval):
		}

		endpoint := c.creds.URL + "/tasks/" + url.PathEscape(t.RequestID)
		var next task
		err := c.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		}, &next)
		if err != nil {
			return task{}, fmt.Errorf("poll task %s: %w", t.RequestID, err)
		}
		if next.RequestID == "" {
			next.RequestID = t.RequestID
		}
		t = next
	}
}

func (c *Client) download(ctx context.Context, t task, w io.Writer) (int64, error) {
	location, err := c.resolve(t.Location)
	if err != nil {
		return 0, err
	}

	// The request is cancelled when no bytes arrive within the stall timeout.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var stalled atomic.Bool
	timer := c.opts.Clock.AfterFunc(c.opts.StallTimeout, func() {
		stalled.Store(true)
		cancel()
	})
	defer timer.Stop()

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	})
	if err != nil {
		if stalled.Load() {
			return 0, ErrStalled
		}
		return 0, fmt.Errorf("download %s: %w", location, err)
	}
	defer resp.Body.Close()

	expected := t.ContentLength
	if expected <= 0 {
		expected = resp.ContentLength
	}

	n, err := io.Copy(w, &stallReader{r: resp.Body, timer: timer, timeout: c.opts.StallTimeout})
	if err != nil {
		if stalled.Load() {
			return n, fmt.Errorf("%w after %d bytes", ErrStalled, n)
		}
		return n, fmt.Errorf("download %s: %w", location, err)
	}
	if expected > 0 && n != expected {
		return n, fmt.Errorf("%w: got %d of %d bytes", ErrIncomplete, n, expected)
	}
	c.metrics.DownloadBytes.WithLabelValues(source).Add(float64(n))
	return n, nil
}

// resolve turns a task location into an absolute URL.
func (c *Client) resolve(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("%w: completed task without location", ErrTaskFailed)
	}
	base, err := url.Parse(c.creds.URL + "/")
	if err != nil {
		return "", fmt.Errorf("parse CDS url: %w", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse location %q: %w", location, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) doJSON(ctx context.Context, build func(ctx context.Context) (*http.Request, error), out any) error {
	user, pass, err := c.creds.basicAuth()
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := build(ctx)
		if err != nil {
			return nil, err
		}
		r.SetBasicAuth(user, pass)
		r.Header.Set("Accept", "application/json")
		return r, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// stallReader pushes the stall deadline back after every successful read.
type stallReader struct {
	r       io.Reader
	timer   clockwork.Timer
	timeout time.Duration
}

func (s *stallReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		s.timer.Reset(s.timeout)
	}
	return n, err
}

// FetchResult reports what FetchMonth did.
type FetchResult int

const (
	Downloaded FetchResult = iota
	Skipped
)

// FetchMonth downloads req into path unless the file already exists. Each
// attempt writes to path+".part", which is renamed only after a complete
// download. Up to attempts tries are made.
func (c *Client) FetchMonth(ctx context.Context, req Request, path string, attempts int) (FetchResult, error) {
	if _, err := os.Stat(path); err == nil {
		c.logger.Info("era5 file exists, skipping", "file", path)
		return Skipped, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create era5 dir: %w", err)
	}
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		start := c.opts.Clock.Now()
		lastErr = c.fetchOnce(ctx, req, path)
		if lastErr == nil {
			c.metrics.DownloadDuration.WithLabelValues(source).Observe(c.opts.Clock.Since(start).Seconds())
			c.logger.Info("era5 file downloaded", "file", path, "attempt", attempt)
			return Downloaded, nil
		}
		c.logger.Warn("era5 download attempt failed", "file", path, "attempt", attempt, "error", lastErr)
	}
	return 0, fmt.Errorf("download %s after %d attempts: %w", filepath.Base(path), attempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, req Request, path string) error {
	part := path + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create %s: %w", part, err)
	}
	_, err = c.Retrieve(ctx, req, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(part)
		return err
	}
	return os.Rename(part, path)
}
