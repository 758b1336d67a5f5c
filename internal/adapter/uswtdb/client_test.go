package uswtdb

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvBody = "case_id,xlong,ylat\n1,-99.7,36.5\n"

func TestClient_Download_WritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "external", "wind_turbines_usa", "turbines.csv")
	c := New(srv.URL, srv.Client(), slog.Default(), observability.NewMetricsForTesting(), nil)
	require.NoError(t, c.Download(context.Background(), dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(data))
	assert.NoFileExists(t, dest+".part")
}

func TestClient_Download_OverwritesExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "turbines.csv")
	require.NoError(t, os.WriteFile(dest, []byte("stale content that is longer than the new body\n"), 0o644))

	c := New(srv.URL, srv.Client(), slog.Default(), observability.NewMetricsForTesting(), nil)
	require.NoError(t, c.Download(context.Background(), dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(data))
}

func TestClient_Download_NotFoundKeepsOldFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "turbines.csv")
	require.NoError(t, os.WriteFile(dest, []byte(csvBody), 0o644))

	c := New(srv.URL, srv.Client(), slog.Default(), observability.NewMetricsForTesting(), nil)
	err := c.Download(context.Background(), dest)
	require.Error(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(data))
}

func TestClient_Download_RecordsDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		clock.Advance(3 * time.Second)
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := New(srv.URL, srv.Client(), slog.Default(), metrics, clock)
	require.NoError(t, c.Download(context.Background(), filepath.Join(t.TempDir(), "turbines.csv")))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(metrics.DownloadDuration))
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	hist := families[0].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 3.0, hist.GetSampleSum(), 1e-9)
}
