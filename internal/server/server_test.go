package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotaflow/quotaflow/internal/config"
	"github.com/quotaflow/quotaflow/internal/core"
	"github.com/quotaflow/quotaflow/internal/server/handlers"
	servermw "github.com/quotaflow/quotaflow/internal/server/middleware"
)

type fakeEngine struct {
	services map[string]bool
	lastOpts core.Options
	cleared  bool
	fail     error
}

func (f *fakeEngine) Request(ctx context.Context, service, endpoint string, opts core.Options) (*core.Response, error) {
	f.lastOpts = opts
	if f.fail != nil {
		return nil, f.fail
	}
	return &core.Response{
		CallID:     "call-1",
		Service:    service,
		Endpoint:   endpoint,
		StatusCode: 200,
		Body:       []byte(`{"ok":true}`),
	}, nil
}

func (f *fakeEngine) BatchRequest(ctx context.Context, items []core.BatchItem) []core.BatchResult {
	results := make([]core.BatchResult, len(items))
	for i, item := range items {
		resp, err := f.Request(ctx, item.Service, item.Endpoint, item.Options)
		if err != nil {
			results[i] = core.BatchResult{Err: err}
			continue
		}
		results[i] = core.BatchResult{OK: true, Response: resp}
	}
	return results
}

func (f *fakeEngine) CacheStats() core.CacheStats {
	return core.CacheStats{Size: 2, MaxSize: 500, Hits: 4, Misses: 2, HitRate: 4.0 / 6.0}
}

func (f *fakeEngine) RateLimitStatus(service string) core.RateLimitStatus {
	return core.RateLimitStatus{Service: service, Current: 3, Limit: 10, Remaining: 7, ResetIn: 42 * time.Second}
}

func (f *fakeEngine) HasService(service string) bool { return f.services[service] }

func (f *fakeEngine) ClearCache() { f.cleared = true }

func newTestServer(t *testing.T, engine *fakeEngine, cfg config.ServerConfig) *Server {
	t.Helper()
	if engine.services == nil {
		engine.services = map[string]bool{"market-data": true, "llm": true, "store": true}
	}
	return New(cfg, engine, zap.NewNop(), handlers.VersionInfo{Version: "1.2.3"})
}

func TestSubmitRequest(t *testing.T) {
	engine := &fakeEngine{}
	srv := newTestServer(t, engine, config.ServerConfig{})

	body := `{"service":"market-data","endpoint":"/quote","params":{"symbol":"AAPL"},"cache_ttl":"2m","priority":5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.ResponsePayload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "call-1", resp.CallID)
	require.Equal(t, "market-data", resp.Service)
	require.Equal(t, `{"ok":true}`, resp.Body)

	require.Equal(t, 2*time.Minute, engine.lastOpts.CacheTTL)
	require.Equal(t, 5, engine.lastOpts.Priority)
}

func TestSubmitRequestRejectsUnknownService(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(`{"service":"nope","endpoint":"/x"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope servermw.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "INVALID_REQUEST", envelope.Error.Code)
	require.Contains(t, envelope.Error.Message, "unknown service")
}

func TestSubmitRequestRejectsBadDuration(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, config.ServerConfig{})

	body := `{"service":"llm","endpoint":"/complete","cache_ttl":"soon"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRequestUpstreamFailure(t *testing.T) {
	engine := &fakeEngine{fail: errors.New("service unavailable")}
	srv := newTestServer(t, engine, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(`{"service":"llm","endpoint":"/complete"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var envelope servermw.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "UPSTREAM_ERROR", envelope.Error.Code)
}

func TestSubmitBatch(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, config.ServerConfig{})

	body := `{"requests":[{"service":"market-data","endpoint":"/quote"},{"service":"llm","endpoint":"/complete"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.BatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 2)
	require.True(t, resp.Results[0].OK)
	require.Equal(t, "/complete", resp.Results[1].Response.Endpoint)
}

func TestCacheEndpoints(t *testing.T) {
	engine := &fakeEngine{}
	srv := newTestServer(t, engine, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats core.CacheStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	require.Equal(t, 2, stats.Size)
	require.Equal(t, uint64(4), stats.Hits)

	req = httptest.NewRequest(http.MethodDelete, "/v1/cache", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, engine.cleared)
}

func TestRateLimitStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/services/llm/rate-limit", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload handlers.RateLimitPayload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	require.Equal(t, "llm", payload.Service)
	require.Equal(t, 7, payload.Remaining)
	require.Equal(t, "42s", payload.ResetIn)

	req = httptest.NewRequest(http.MethodGet, "/v1/services/nope/rate-limit", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/version", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var version handlers.VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&version))
	require.Equal(t, "quotaflow", version.Name)
	require.Equal(t, "1.2.3", version.Version)
}

func TestNotFoundEnvelope(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotEmpty(t, rec.Header().Get(servermw.RequestIDHeader))

	var envelope servermw.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "NOT_FOUND", envelope.Error.Code)
	require.NotEmpty(t, envelope.Error.RequestID)
}

func TestRequestIDIsPreserved(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(servermw.RequestIDHeader, "fixed-id")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, "fixed-id", rec.Header().Get(servermw.RequestIDHeader))
}

func TestThrottleRejectsExcessRequests(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, config.ServerConfig{ThrottleRPS: 0.001, ThrottleBurst: 1})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code, "request %d", i)
	}
}
