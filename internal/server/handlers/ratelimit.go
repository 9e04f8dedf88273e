package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quotaflow/quotaflow/internal/server/middleware"
)

// RateLimitPayload is the wire form of a service's sliding-window state.
type RateLimitPayload struct {
	Service   string `json:"service"`
	Current   int    `json:"current"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetIn   string `json:"reset_in"`
}

// RateLimitStatus handles GET /v1/services/{service}/rate-limit.
func (h *Handler) RateLimitStatus(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	if !h.Engine.HasService(service) {
		middleware.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "unknown service: "+service)
		return
	}

	status := h.Engine.RateLimitStatus(service)
	writeJSON(w, http.StatusOK, RateLimitPayload{
		Service:   status.Service,
		Current:   status.Current,
		Limit:     status.Limit,
		Remaining: status.Remaining,
		ResetIn:   status.ResetIn.Round(time.Millisecond).String(),
	})
}
