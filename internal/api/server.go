// Package api exposes the status HTTP interface for the crawler.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marknadsdata/insider-crawler/internal/crawl"
	"github.com/marknadsdata/insider-crawler/internal/metrics"
)

// Server wires the health and metrics endpoints while a crawl runs.
type Server struct {
	router  chi.Router
	clock   crawl.Clock
	logger  *zap.Logger
	started time.Time
}

// NewServer constructs a Server with its routes.
func NewServer(clock crawl.Clock, logger *zap.Logger) *Server {
	s := &Server{
		clock:   clock,
		logger:  logger,
		started: clock.Now(),
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	s.router = r
	return s
}

// Handler returns the HTTP handler for the status server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(s.clock.Now().Sub(s.started).Seconds()),
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("Failed to encode health payload", zap.Error(err))
	}
}
