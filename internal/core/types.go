package core

import "time"

// Default option values applied when a field is left at its zero value.
const (
	DefaultMethod         = "GET"
	DefaultCacheTTL       = 5 * time.Minute
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
)

// Options controls how a single request is executed.
//
// Zero values mean "use the default": Method defaults to GET, CacheTTL to
// DefaultCacheTTL, MaxRetries to DefaultMaxRetries (set -1 to disable
// retries), RetryBaseDelay to DefaultRetryBaseDelay. Caching is on unless
// NoCache is set.
type Options struct {
	Method         string            `json:"method,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           []byte            `json:"body,omitempty"`
	Priority       int               `json:"priority,omitempty"`
	NoCache        bool              `json:"no_cache,omitempty"`
	CacheTTL       time.Duration     `json:"cache_ttl,omitempty"`
	MaxRetries     int               `json:"max_retries,omitempty"`
	RetryBaseDelay time.Duration     `json:"retry_base_delay,omitempty"`
}

// Response is the settled outcome of a request. The body is opaque to the
// orchestration layer.
type Response struct {
	CallID      string    `json:"call_id,omitempty"`
	Service     string    `json:"service"`
	Endpoint    string    `json:"endpoint"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"-"`
	FromCache   bool      `json:"from_cache"`
	Attempts    int       `json:"attempts,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// BatchItem describes one request in a batch.
type BatchItem struct {
	Service  string  `json:"service"`
	Endpoint string  `json:"endpoint"`
	Options  Options `json:"options"`
}

// BatchResult is the per-item outcome of a batch, index-aligned with the
// submitted items. Exactly one of Response and Err is set.
type BatchResult struct {
	OK       bool
	Response *Response
	Err      error
}

// CacheStats reports response cache occupancy and effectiveness.
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// RateLimitStatus reports the sliding-window state for one service.
type RateLimitStatus struct {
	Service   string        `json:"service"`
	Current   int           `json:"current"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"reset_in"`
}

// JournalEntry records one executed transport call for the history surface.
type JournalEntry struct {
	CallID     string    `json:"call_id"`
	Service    string    `json:"service"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	StatusCode int       `json:"status_code"`
	Attempts   int       `json:"attempts"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
