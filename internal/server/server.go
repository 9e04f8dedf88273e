// Package server exposes the orchestration engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/quotaflow/quotaflow/internal/config"
	"github.com/quotaflow/quotaflow/internal/server/handlers"
	servermw "github.com/quotaflow/quotaflow/internal/server/middleware"
)

// Server represents the HTTP facade.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	logger *zap.Logger
}

// New assembles the router with the middleware chain and all routes.
func New(cfg config.ServerConfig, engine handlers.Engine, logger *zap.Logger, version handlers.VersionInfo) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.Logging(logger))
	r.Use(servermw.Recovery(logger))
	if cfg.ThrottleRPS > 0 {
		burst := cfg.ThrottleBurst
		if burst <= 0 {
			burst = 1
		}
		r.Use(servermw.Throttle(cfg.ThrottleRPS, burst))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		servermw.WriteError(w, req, http.StatusNotFound, "NOT_FOUND", "the requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		servermw.WriteError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "the requested method is not allowed for this resource")
	})

	s := &Server{
		router: r,
		cfg:    cfg,
		logger: logger,
	}

	h := &handlers.Handler{Engine: engine, Logger: logger, Version: version}
	s.registerRoutes(h)

	return s
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  timeoutOr(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: timeoutOr(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  timeoutOr(s.cfg.IdleTimeout, 120*time.Second),
	}

	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
