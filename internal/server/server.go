// Package server provides the HTTP API for Okikae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/okikae/internal/batch"
	"github.com/hyperjump/okikae/internal/config"
	"github.com/hyperjump/okikae/internal/storage"
)

// Server is the HTTP server for the Okikae API.
type Server struct {
	orchestrator *batch.Orchestrator
	storage      storage.Storage
	config       *config.Config
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. storage may be
// nil, in which case run history endpoints respond 501.
func NewServer(
	orchestrator *batch.Orchestrator,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		storage:      store,
		config:       cfg,
		logger:       logger,
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/replace", s.handleReplace)
	r.Post("/api/v1/replace/preview", s.handleReplacePreview)
	r.Get("/api/v1/runs", s.handleRuns)
	r.Get("/api/v1/runs/{id}", s.handleRun)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
