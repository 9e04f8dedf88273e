// Package transport performs the literal network calls on behalf of the
// orchestration layer. It knows nothing about queues, quotas, or caching;
// it only speaks HTTP and reports non-2xx statuses as errors.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/quotaflow/quotaflow/internal/core/engine"
)

const maxErrorBodyBytes = 4 << 10

// StatusError reports a non-2xx response. It carries enough information
// (status code, status text, body excerpt) for the caller to react, and a
// Retry-After hint when the provider sent one.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// RetryAfterHint reports provider pushback, if any.
func (e *StatusError) RetryAfterHint() (time.Duration, bool) {
	return e.RetryAfter, e.RetryAfter > 0
}

// HTTPClient executes calls over HTTP.
type HTTPClient struct {
	Client    *http.Client
	UserAgent string
}

var _ engine.Transport = (*HTTPClient)(nil)

// Do performs one HTTP call. The URL arrives fully constructed; query
// parameter handling is the orchestrator's responsibility.
func (t *HTTPClient) Do(ctx context.Context, call engine.Call) (*engine.CallResult, error) {
	if t == nil {
		return nil, errors.New("http transport is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, call.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if len(call.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", call.URL, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(bytes.TrimSpace(excerpt)),
			RetryAfter: retryAfterHeader(resp),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &engine.CallResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        payload,
	}, nil
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retry); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		if wait := time.Until(parsed); wait > 0 {
			return wait
		}
	}

	return 0
}
