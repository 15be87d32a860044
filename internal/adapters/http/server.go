// Package http exposes the layout engine over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/incari/dashgrid/internal/logging"
	"github.com/incari/dashgrid/pkg/domain"
)

// Engine defines the interface for the reconciliation core.
type Engine interface {
	Snapshot() domain.Layout
	Flush(ctx context.Context, placements []domain.ItemPlacement) error
	Resync(ctx context.Context) error
}

// SectionCommitter commits section reorders immediately.
type SectionCommitter interface {
	Commit(ctx context.Context, placements []domain.SectionPlacement) error
}

// Server routes layout API requests to the engine.
type Server struct {
	engine   Engine
	sections SectionCommitter
	logger   *slog.Logger
	registry *prometheus.Registry
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsRegistry mounts a /metrics endpoint for the given registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// NewHandler creates the HTTP handler for the layout API.
func NewHandler(engine Engine, sections SectionCommitter, opts ...Option) http.Handler {
	s := &Server{
		engine:   engine,
		sections: sections,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Get("/api/layout", s.getLayout)
	r.Post("/api/layout/reposition", s.reposition)
	r.Post("/api/layout/resync", s.resync)
	r.Post("/api/sections/reorder", s.reorderSections)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// RepositionRequest is the body of POST /api/layout/reposition.
type RepositionRequest struct {
	Placements []domain.ItemPlacement `json:"placements"`
}

// ReorderSectionsRequest is the body of POST /api/sections/reorder.
type ReorderSectionsRequest struct {
	Placements []domain.SectionPlacement `json:"placements"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.Snapshot())
}

func (s *Server) reposition(w http.ResponseWriter, r *http.Request) {
	var body RepositionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.Placements) == 0 {
		http.Error(w, "No placements given", http.StatusBadRequest)
		return
	}

	// A flush never propagates gateway rejections: a rejected batch resolves
	// into a canonical resync and the refreshed layout is returned. Only an
	// unreachable canonical source is an error here.
	if err := s.engine.Flush(r.Context(), body.Placements); err != nil {
		s.logger.Error("reposition failed", "err", err)
		http.Error(w, "Layout unavailable", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, s.engine.Snapshot())
}

func (s *Server) reorderSections(w http.ResponseWriter, r *http.Request) {
	var body ReorderSectionsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.Placements) == 0 {
		http.Error(w, "No placements given", http.StatusBadRequest)
		return
	}

	if err := s.sections.Commit(r.Context(), body.Placements); err != nil {
		s.logger.Error("section reorder failed", "err", err)
		http.Error(w, "Layout unavailable", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, s.engine.Snapshot())
}

func (s *Server) resync(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Resync(r.Context()); err != nil {
		if errors.Is(err, domain.ErrLayoutNotFound) {
			http.Error(w, "No layout persisted yet", http.StatusNotFound)
			return
		}
		s.logger.Error("resync failed", "err", err)
		http.Error(w, "Layout unavailable", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, s.engine.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
