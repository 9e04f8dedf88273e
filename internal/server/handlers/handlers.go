// Package handlers implements the HTTP facade's route handlers. Every
// handler delegates to the orchestration engine; the facade adds no
// behavior beyond encoding and validation.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/quotaflow/quotaflow/internal/core"
)

// Engine is the orchestration surface the facade exposes.
type Engine interface {
	Request(ctx context.Context, service, endpoint string, opts core.Options) (*core.Response, error)
	BatchRequest(ctx context.Context, items []core.BatchItem) []core.BatchResult
	CacheStats() core.CacheStats
	RateLimitStatus(service string) core.RateLimitStatus
	HasService(service string) bool
	ClearCache()
}

// VersionInfo carries build metadata injected from main.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Handler holds the dependencies shared by all route handlers.
type Handler struct {
	Engine  Engine
	Logger  *zap.Logger
	Version VersionInfo
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
