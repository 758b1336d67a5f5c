// Package uswtdb downloads the U.S. Wind Turbine Database CSV release.
package uswtdb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/httpclient"
	"github.com/couchcryptid/wind-repower-usa/internal/observability"
	"github.com/jonboulle/clockwork"
)

const source = "uswtdb"

// Client fetches the turbine CSV.
type Client struct {
	url     string
	http    *httpclient.Client
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// New creates a Client for the given release URL. A nil clock times downloads
// with the wall clock.
func New(url string, hc *http.Client, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		url:     url,
		http:    httpclient.New(source, hc, httpclient.DefaultBackoff, metrics),
		logger:  logger,
		metrics: metrics,
		clock:   clock,
	}
}

// Download writes the CSV to dest, replacing any previous copy. The file is
// staged next to dest and renamed once complete.
func (c *Client) Download(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create turbines dir: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	})
	if err != nil {
		return fmt.Errorf("download turbines: %w", err)
	}
	defer resp.Body.Close()

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create %s: %w", part, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("write turbines: %w", err)
	}
	if err := os.Rename(part, dest); err != nil {
		return fmt.Errorf("rename turbines file: %w", err)
	}

	c.metrics.DownloadBytes.WithLabelValues(source).Add(float64(n))
	c.metrics.DownloadDuration.WithLabelValues(source).Observe(c.clock.Since(start).Seconds())
	c.logger.Info("turbines downloaded", "file", dest, "bytes", n)
	return nil
}
