package engine

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quotaflow/quotaflow/internal/core"
)

// Service describes one named upstream the orchestrator may call.
type Service struct {
	BaseURL string
	Limit   RateLimit
}

// Call describes one literal network call handed to the transport. URL
// construction, including query parameters, happens before this point.
type Call struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}

// CallResult is the transport's view of a successful (2xx) response.
type CallResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Transport performs the literal network call. Implementations reject
// non-2xx statuses with an error carrying the status code and text.
type Transport interface {
	Do(ctx context.Context, call Call) (*CallResult, error)
}

// RetryAfterHinter is implemented by transport errors that carry provider
// pushback (a 429 Retry-After). The orchestrator feeds the hint into the
// rate limiter as a penalty window.
type RetryAfterHinter interface {
	RetryAfterHint() (time.Duration, bool)
}

// CacheStore is an optional persistent cache tier behind the in-memory
// cache, consulted on a memory miss and written through on success.
type CacheStore interface {
	GetResponse(ctx context.Context, key string) (*core.Response, bool, error)
	PutResponse(ctx context.Context, key string, resp *core.Response, ttl time.Duration) error
}

// Journal optionally records every executed transport call.
type Journal interface {
	Record(ctx context.Context, entry core.JournalEntry) error
}

// Orchestrator mediates outbound calls to rate-limited services. Requests
// are deduplicated by identity, answered from cache when fresh, and
// otherwise queued by priority and drained one at a time as each service's
// quota permits. One orchestrator owns its limiter, cache, and dedup state
// exclusively.
type Orchestrator struct {
	Services  map[string]Service
	Transport Transport
	Limiter   *RateLimiter
	Cache     *Cache
	Retry     *RetryExecutor
	Store     CacheStore
	Journal   Journal
	Logger    *zap.Logger
	Clock     func() time.Time

	// AfterFunc schedules the drain wake-up after a rate-limit pause.
	// Overridable in tests; defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())

	initOnce sync.Once

	mu       sync.Mutex
	queue    requestQueue
	seq      uint64
	draining bool
	dedup    dedupTable
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
	http.MethodHead:   true,
}

// Request submits one request and waits for its settlement. Identical
// in-flight requests share a single execution; fresh cache entries are
// returned without a network call. Once accepted, the request runs to
// settlement even if ctx is canceled; cancellation only stops the wait.
func (o *Orchestrator) Request(ctx context.Context, service, endpoint string, opts core.Options) (*core.Response, error) {
	if o == nil || o.Transport == nil {
		return nil, errors.New("orchestrator is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	o.init()

	req, err := o.normalize(service, endpoint, opts)
	if err != nil {
		return nil, err
	}

	entry, owner := o.dedup.begin(req.key)
	if !owner {
		return await(ctx, entry)
	}

	if req.cacheable {
		if resp, ok := o.cacheLookup(ctx, req); ok {
			entry.settle(resp, nil)
			o.dedup.complete(req.key)
			return resp, nil
		}
	}

	req.entry = entry
	o.enqueue(req)
	return await(ctx, entry)
}

// BatchRequest fans out all items concurrently and collects index-aligned
// per-item outcomes. One item's failure never affects its siblings.
func (o *Orchestrator) BatchRequest(ctx context.Context, items []core.BatchItem) []core.BatchResult {
	results := make([]core.BatchResult, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item core.BatchItem) {
			defer wg.Done()
			resp, err := o.Request(ctx, item.Service, item.Endpoint, item.Options)
			if err != nil {
				results[i] = core.BatchResult{Err: err}
				return
			}
			results[i] = core.BatchResult{OK: true, Response: resp}
		}(i, item)
	}
	wg.Wait()

	return results
}

// CacheStats reports the in-memory cache's occupancy and hit rate.
func (o *Orchestrator) CacheStats() core.CacheStats {
	o.init()
	return o.Cache.Stats()
}

// RateLimitStatus reports the sliding-window state for service.
func (o *Orchestrator) RateLimitStatus(service string) core.RateLimitStatus {
	o.init()
	return o.Limiter.Status(service)
}

// HasService reports whether service is registered.
func (o *Orchestrator) HasService(service string) bool {
	_, ok := o.Services[service]
	return ok
}

// ClearCache drops all in-memory cache entries.
func (o *Orchestrator) ClearCache() {
	o.init()
	o.Cache.Clear()
}

func (o *Orchestrator) init() {
	o.initOnce.Do(func() {
		if o.Limiter == nil {
			o.Limiter = &RateLimiter{Limits: o.serviceLimits(), Clock: o.Clock}
		}
		if o.Cache == nil {
			o.Cache = &Cache{Clock: o.Clock}
		}
		if o.Retry == nil {
			o.Retry = &RetryExecutor{}
		}
		if o.Logger == nil {
			o.Logger = zap.NewNop()
		}
		if o.AfterFunc == nil {
			o.AfterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
		}
	})
}

func (o *Orchestrator) serviceLimits() map[string]RateLimit {
	if len(o.Services) == 0 {
		return nil
	}
	limits := make(map[string]RateLimit, len(o.Services))
	for name, svc := range o.Services {
		if svc.Limit.MaxRequests > 0 && svc.Limit.WindowDuration > 0 {
			limits[name] = svc.Limit
		} else if fallback, ok := DefaultLimits[name]; ok {
			limits[name] = fallback
		}
	}
	return limits
}

// normalize validates the descriptor and applies defaults. Malformed
// descriptors fail here, synchronously, before anything is enqueued.
func (o *Orchestrator) normalize(service, endpoint string, opts core.Options) (*request, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, errors.New("service is required")
	}
	if _, ok := o.Services[service]; !ok {
		return nil, fmt.Errorf("unknown service: %s", service)
	}

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = core.DefaultMethod
	}
	if !allowedMethods[method] {
		return nil, fmt.Errorf("unsupported method: %s", method)
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL < 0 {
		return nil, errors.New("cache ttl must not be negative")
	}
	if cacheTTL == 0 {
		cacheTTL = core.DefaultCacheTTL
	}

	maxRetries := opts.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = core.DefaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	baseDelay := opts.RetryBaseDelay
	if baseDelay < 0 {
		return nil, errors.New("retry base delay must not be negative")
	}
	if baseDelay == 0 {
		baseDelay = core.DefaultRetryBaseDelay
	}

	return &request{
		key:            RequestKey(service, endpoint, opts.Params),
		service:        service,
		endpoint:       endpoint,
		method:         method,
		params:         opts.Params,
		headers:        opts.Headers,
		body:           opts.Body,
		priority:       opts.Priority,
		cacheable:      !opts.NoCache,
		cacheTTL:       cacheTTL,
		maxRetries:     maxRetries,
		retryBaseDelay: baseDelay,
		requestedAt:    o.now(),
	}, nil
}

// cacheLookup checks the in-memory cache, then the persistent tier. A
// persistent hit is promoted into memory.
func (o *Orchestrator) cacheLookup(ctx context.Context, req *request) (*core.Response, bool) {
	if resp, ok := o.Cache.Get(req.key); ok {
		return cachedCopy(resp), true
	}

	if o.Store != nil {
		resp, ok, err := o.Store.GetResponse(ctx, req.key)
		if err != nil {
			o.Logger.Debug("persistent cache lookup failed",
				zap.String("key", req.key), zap.Error(err))
		} else if ok && resp != nil {
			o.Cache.Set(req.key, resp, req.cacheTTL)
			return cachedCopy(resp), true
		}
	}

	return nil, false
}

func (o *Orchestrator) enqueue(req *request) {
	o.mu.Lock()
	o.seq++
	heap.Push(&o.queue, &queuedRequest{req: req, enqueuedAt: req.requestedAt, seq: o.seq})
	start := !o.draining
	if start {
		o.draining = true
	}
	o.mu.Unlock()

	if start {
		go o.drain()
	}
}

// drain pops queued requests one at a time. When the head's service is
// limited the head keeps its place and a timer resumes the drain after the
// window resets; the draining flag stays set so no second loop starts.
func (o *Orchestrator) drain() {
	for {
		o.mu.Lock()
		if o.queue.Len() == 0 {
			o.draining = false
			o.mu.Unlock()
			return
		}

		service := o.queue[0].req.service
		if o.Limiter.IsLimited(service) {
			wait := o.Limiter.TimeUntilReset(service)
			o.mu.Unlock()
			if wait <= 0 {
				continue
			}
			o.Logger.Debug("rate limited, pausing drain",
				zap.String("service", service), zap.Duration("wait", wait))
			o.AfterFunc(wait, o.drain)
			return
		}

		o.Limiter.RecordCall(service)
		item := heap.Pop(&o.queue).(*queuedRequest)
		o.mu.Unlock()

		o.execute(item.req)
	}
}

// execute runs one request through the retry executor and settles every
// waiter. The dedup entry is removed on success and on failure alike.
func (o *Orchestrator) execute(req *request) {
	ctx := context.Background()
	callID := uuid.New().String()
	started := o.now()

	result, attempts, err := o.Retry.Execute(ctx, o.callFn(req), req.maxRetries, req.retryBaseDelay)
	finished := o.now()

	if err != nil {
		o.Logger.Debug("request failed",
			zap.String("service", req.service),
			zap.String("endpoint", req.endpoint),
			zap.Int("attempts", attempts),
			zap.Error(err))
		o.journal(ctx, req, callID, 0, attempts, "error", err.Error(), started, finished)
		req.entry.settle(nil, err)
		o.dedup.complete(req.key)
		return
	}

	resp := &core.Response{
		CallID:      callID,
		Service:     req.service,
		Endpoint:    req.endpoint,
		StatusCode:  result.StatusCode,
		ContentType: result.ContentType,
		Body:        result.Body,
		Attempts:    attempts,
		RequestedAt: req.requestedAt,
		ResolvedAt:  finished,
	}

	if req.cacheable {
		o.Cache.Set(req.key, resp, req.cacheTTL)
		if o.Store != nil {
			if err := o.Store.PutResponse(ctx, req.key, resp, req.cacheTTL); err != nil {
				o.Logger.Debug("persistent cache write failed",
					zap.String("key", req.key), zap.Error(err))
			}
		}
	}

	o.journal(ctx, req, callID, result.StatusCode, attempts, "ok", "", started, finished)
	req.entry.settle(resp, nil)
	o.dedup.complete(req.key)
}

// callFn builds the closure handed to the retry executor. Provider 429
// pushback feeds the limiter before the next attempt.
func (o *Orchestrator) callFn(req *request) func(ctx context.Context) (*core.Response, error) {
	callURL := o.buildURL(req)
	return func(ctx context.Context) (*core.Response, error) {
		result, err := o.Transport.Do(ctx, Call{
			URL:     callURL,
			Method:  req.method,
			Headers: req.headers,
			Body:    req.body,
		})
		if err != nil {
			var hint RetryAfterHinter
			if errors.As(err, &hint) {
				if d, ok := hint.RetryAfterHint(); ok {
					o.Limiter.Penalize(req.service, d)
				}
			}
			return nil, err
		}
		return &core.Response{StatusCode: result.StatusCode, ContentType: result.ContentType, Body: result.Body}, nil
	}
}

// buildURL joins the service base URL, the endpoint path, and the query
// parameters. URL construction is the orchestrator's job, not the
// transport's.
func (o *Orchestrator) buildURL(req *request) string {
	base := strings.TrimRight(o.Services[req.service].BaseURL, "/")
	endpoint := req.endpoint
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	full := base + endpoint
	if len(req.params) == 0 {
		return full
	}

	values := url.Values{}
	for k, v := range req.params {
		values.Set(k, v)
	}
	return full + "?" + values.Encode()
}

func (o *Orchestrator) journal(ctx context.Context, req *request, callID string, status, attempts int, outcome, message string, started, finished time.Time) {
	if o.Journal == nil {
		return
	}

	err := o.Journal.Record(ctx, core.JournalEntry{
		CallID:     callID,
		Service:    req.service,
		Endpoint:   req.endpoint,
		Method:     req.method,
		StatusCode: status,
		Attempts:   attempts,
		Outcome:    outcome,
		Message:    message,
		StartedAt:  started,
		FinishedAt: finished,
	})
	if err != nil {
		o.Logger.Debug("journal write failed", zap.Error(err))
	}
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

func await(ctx context.Context, entry *inflight) (*core.Response, error) {
	select {
	case <-entry.done:
		return entry.resp, entry.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// cachedCopy returns a shallow copy flagged as served from cache.
func cachedCopy(resp *core.Response) *core.Response {
	if resp == nil {
		return nil
	}
	copied := *resp
	copied.FromCache = true
	return &copied
}
