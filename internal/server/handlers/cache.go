package handlers

import (
	"net/http"
)

// CacheStats handles GET /v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.CacheStats())
}

// ClearCache handles DELETE /v1/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.Engine.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
