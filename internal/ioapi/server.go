// Package ioapi serves the review workflow over HTTP: the queue, the
// specimen detail view, and the reviewer actions, plus health and
// metrics endpoints.
package ioapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/openherbaria/herbdb/pkg/config"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server hosts the review API.
type Server struct {
	cfg    *config.Config
	engine herbdb.ReviewEngine
	http   *http.Server
}

// New creates the API server.
func New(cfg *config.Config, engine herbdb.ReviewEngine) *Server {
	s := &Server{cfg: cfg, engine: engine}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/queue", s.handleQueue)
		r.Route("/specimens/{specimenID}", func(r chi.Router) {
			r.Get("/", s.handleDetail)
			r.Post("/review", s.handleReview)
			r.Post("/priority", s.handlePriority)
			r.Post("/flagged", s.handleFlagged)
			r.Post("/reopen", s.handleReopen)
		})
		r.Post("/flags/{flagID}/resolve", s.handleResolveFlag)
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Review API listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return ServerError(err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return ServerError(err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
