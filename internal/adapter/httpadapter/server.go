package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/wind-repower-usa/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TargetLister exposes the registered pipeline targets.
type TargetLister interface {
	Targets() []pipeline.Target
}

// Server exposes health, readiness, metrics and target listing endpoints while
// the pipeline runs.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /targets routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, targets TargetLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /targets", handleTargets(targets))

	return s
}

type targetInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Deps        []string `json:"deps,omitempty"`
}

func handleTargets(targets TargetLister) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list := targets.Targets()
		out := make([]targetInfo, len(list))
		for i, t := range list {
			out[i] = targetInfo{Name: t.Name, Description: t.Description, Deps: t.Deps}
		}
		sharedobs.WriteJSON(w, http.StatusOK, out)
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
