package server

import (
	"github.com/quotaflow/quotaflow/internal/server/handlers"
)

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(h *handlers.Handler) {
	s.router.Get("/healthz", h.Health)
	s.router.Get("/version", h.VersionHandler)

	s.router.Post("/v1/requests", h.SubmitRequest)
	s.router.Post("/v1/batch", h.SubmitBatch)
	s.router.Get("/v1/cache/stats", h.CacheStats)
	s.router.Delete("/v1/cache", h.ClearCache)
	s.router.Get("/v1/services/{service}/rate-limit", h.RateLimitStatus)
}
