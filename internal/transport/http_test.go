package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotaflow/quotaflow/internal/core/engine"
)

func TestHTTPClientSuccess(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price":123.45}`))
	}))
	defer server.Close()

	client := &HTTPClient{Client: server.Client(), UserAgent: "quotaflow-test"}
	result, err := client.Do(context.Background(), engine.Call{
		URL:     server.URL + "/quote?symbol=AAPL",
		Method:  http.MethodGet,
		Headers: map[string]string{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, "application/json", result.ContentType)
	require.JSONEq(t, `{"price":123.45}`, string(result.Body))

	require.Equal(t, "/quote", got.URL.Path)
	require.Equal(t, "AAPL", got.URL.Query().Get("symbol"))
	require.Equal(t, "secret", got.Header.Get("X-Api-Key"))
	require.Equal(t, "quotaflow-test", got.Header.Get("User-Agent"))
}

func TestHTTPClientPostBody(t *testing.T) {
	var contentType string
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"doc-1"}`))
	}))
	defer server.Close()

	client := &HTTPClient{Client: server.Client()}
	result, err := client.Do(context.Background(), engine.Call{
		URL:    server.URL + "/documents",
		Method: http.MethodPost,
		Body:   []byte(`{"title":"x"}`),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, result.StatusCode)
	require.Equal(t, "application/json", contentType)
	require.JSONEq(t, `{"title":"x"}`, string(received))
}

func TestHTTPClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := &HTTPClient{Client: server.Client()}
	_, err := client.Do(context.Background(), engine.Call{URL: server.URL + "/x", Method: http.MethodGet})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Contains(t, statusErr.Error(), "upstream unavailable")

	_, ok := statusErr.RetryAfterHint()
	require.False(t, ok)
}

func TestHTTPClientRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := &HTTPClient{Client: server.Client()}
	_, err := client.Do(context.Background(), engine.Call{URL: server.URL + "/x", Method: http.MethodGet})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)

	wait, ok := statusErr.RetryAfterHint()
	require.True(t, ok)
	require.Equal(t, 42*time.Second, wait)
}
