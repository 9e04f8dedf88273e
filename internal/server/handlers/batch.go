package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quotaflow/quotaflow/internal/core"
	"github.com/quotaflow/quotaflow/internal/server/middleware"
)

// BatchPayload is the wire form of a batch submission.
type BatchPayload struct {
	Requests []RequestPayload `json:"requests"`
}

// BatchItemResult is the wire form of one per-item outcome, index-aligned
// with the submitted requests.
type BatchItemResult struct {
	OK       bool             `json:"ok"`
	Response *ResponsePayload `json:"response,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// BatchResponse wraps the index-aligned results.
type BatchResponse struct {
	Results []BatchItemResult `json:"results"`
}

// SubmitBatch handles POST /v1/batch. Items fan out concurrently; one
// item's failure never affects its siblings.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var payload BatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if len(payload.Requests) == 0 {
		middleware.WriteError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "requests must not be empty")
		return
	}

	items := make([]core.BatchItem, len(payload.Requests))
	for i, req := range payload.Requests {
		opts, err := req.Options()
		if err != nil {
			middleware.WriteError(w, r, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("request %d: %v", i, err))
			return
		}
		items[i] = core.BatchItem{Service: req.Service, Endpoint: req.Endpoint, Options: opts}
	}

	results := h.Engine.BatchRequest(r.Context(), items)

	out := BatchResponse{Results: make([]BatchItemResult, len(results))}
	for i, res := range results {
		if res.Err != nil {
			out.Results[i] = BatchItemResult{Error: res.Err.Error()}
			continue
		}
		resp := NewResponsePayload(res.Response)
		out.Results[i] = BatchItemResult{OK: true, Response: &resp}
	}

	writeJSON(w, http.StatusOK, out)
}
