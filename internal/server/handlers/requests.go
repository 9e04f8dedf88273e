package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quotaflow/quotaflow/internal/core"
	"github.com/quotaflow/quotaflow/internal/server/middleware"
)

// RequestPayload is the wire form of a single request submission. Durations
// are Go duration strings ("30s", "5m").
type RequestPayload struct {
	Service        string            `json:"service"`
	Endpoint       string            `json:"endpoint"`
	Method         string            `json:"method,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	Priority       int               `json:"priority,omitempty"`
	NoCache        bool              `json:"no_cache,omitempty"`
	CacheTTL       string            `json:"cache_ttl,omitempty"`
	MaxRetries     int               `json:"max_retries,omitempty"`
	RetryBaseDelay string            `json:"retry_base_delay,omitempty"`
}

// ResponsePayload is the wire form of a settled response. The upstream body
// is included verbatim as a string.
type ResponsePayload struct {
	CallID      string    `json:"call_id,omitempty"`
	Service     string    `json:"service"`
	Endpoint    string    `json:"endpoint"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type,omitempty"`
	Body        string    `json:"body,omitempty"`
	FromCache   bool      `json:"from_cache"`
	Attempts    int       `json:"attempts,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// Options converts the payload into engine options, parsing durations.
func (p RequestPayload) Options() (core.Options, error) {
	opts := core.Options{
		Method:     p.Method,
		Params:     p.Params,
		Headers:    p.Headers,
		Priority:   p.Priority,
		NoCache:    p.NoCache,
		MaxRetries: p.MaxRetries,
	}
	if p.Body != "" {
		opts.Body = []byte(p.Body)
	}

	if p.CacheTTL != "" {
		d, err := time.ParseDuration(p.CacheTTL)
		if err != nil {
			return core.Options{}, fmt.Errorf("invalid cache_ttl: %w", err)
		}
		opts.CacheTTL = d
	}
	if p.RetryBaseDelay != "" {
		d, err := time.ParseDuration(p.RetryBaseDelay)
		if err != nil {
			return core.Options{}, fmt.Errorf("invalid retry_base_delay: %w", err)
		}
		opts.RetryBaseDelay = d
	}

	return opts, nil
}

// Validate rejects payloads the engine would refuse, before submission.
func (p RequestPayload) Validate(engine Engine) error {
	if strings.TrimSpace(p.Service) == "" {
		return fmt.Errorf("service is required")
	}
	if !engine.HasService(p.Service) {
		return fmt.Errorf("unknown service: %s", p.Service)
	}
	if strings.TrimSpace(p.Endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	return nil
}

// NewResponsePayload converts an engine response to its wire form.
func NewResponsePayload(resp *core.Response) ResponsePayload {
	return ResponsePayload{
		CallID:      resp.CallID,
		Service:     resp.Service,
		Endpoint:    resp.Endpoint,
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
		Body:        string(resp.Body),
		FromCache:   resp.FromCache,
		Attempts:    resp.Attempts,
		RequestedAt: resp.RequestedAt,
		ResolvedAt:  resp.ResolvedAt,
	}
}

// SubmitRequest handles POST /v1/requests.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var payload RequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}

	if err := payload.Validate(h.Engine); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	opts, err := payload.Options()
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	resp, err := h.Engine.Request(r.Context(), payload.Service, payload.Endpoint, opts)
	if err != nil {
		h.Logger.Warn("request failed",
			zap.String("service", payload.Service),
			zap.String("endpoint", payload.Endpoint),
			zap.Error(err))
		middleware.WriteError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, NewResponsePayload(resp))
}
