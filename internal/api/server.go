// Package api provides the HTTP surface of the evaluation service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/kestrel/internal/audit"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/engine"
	"github.com/opensource-finance/kestrel/internal/session"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, loader *engine.Loader, sessions *session.Manager, recorder *audit.Recorder, version string) *Server {
	handler := NewHandler(repo, cache, bus, loader, sessions, recorder, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/", func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Engine runs
		r.Post("/engine/run", handler.RunEngine)
		r.Post("/engine/run/async", handler.RunEngineAsync)

		// Snapshot retrieval
		r.Get("/snapshots/{id}", handler.GetSnapshot)

		// Model version management
		r.Get("/model-versions", handler.ListModelVersions)
		r.Post("/model-versions", handler.CreateModelVersion)
		r.Get("/model-versions/{id}", handler.GetModelVersion)
		r.Post("/model-versions/{id}/activate", handler.ActivateModelVersion)

		// Rule management
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{id}", handler.GetRule)
		r.Post("/rules", handler.CreateRule)
		r.Post("/expressions/validate", handler.ValidateExpression)

		// State classification config
		r.Get("/states", handler.ListStates)
		r.Post("/states", handler.CreateState)
		r.Get("/state-thresholds", handler.ListStateThresholds)
		r.Post("/state-thresholds", handler.CreateStateThreshold)

		// Restructuring config
		r.Get("/restructuring-templates", handler.ListRestructuringTemplates)
		r.Post("/restructuring-templates", handler.CreateRestructuringTemplate)

		// Sessions
		r.Get("/sessions", handler.ListSessions)
		r.Post("/sessions", handler.CreateSession)
		r.Get("/sessions/{id}", handler.GetSession)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
