package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/quotaflow/quotaflow/internal/core"
)

// RateLimit represents a rate limit window.
type RateLimit struct {
	MaxRequests    int
	WindowDuration time.Duration
}

// DefaultLimits provides conservative defaults per service.
var DefaultLimits = map[string]RateLimit{
	"market-data": {MaxRequests: 30, WindowDuration: time.Minute},
	"llm":         {MaxRequests: 10, WindowDuration: time.Minute},
	"store":       {MaxRequests: 100, WindowDuration: time.Minute},
}

// RateLimiter tracks a sliding window of call timestamps per service.
// It mirrors the provider's external quota on a best-effort basis; state
// is in-memory only and not shared across processes.
type RateLimiter struct {
	Limits map[string]RateLimit
	Clock  func() time.Time

	mu    sync.Mutex
	calls map[string][]time.Time
}

// IsLimited reports whether one more call to service would exceed its quota.
func (r *RateLimiter) IsLimited(service string) bool {
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	limit := r.getLimit(service)
	retained := r.prune(service, limit.WindowDuration)
	return len(retained) >= limit.MaxRequests
}

// RecordCall appends a call timestamp for service.
func (r *RateLimiter) RecordCall(service string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.calls == nil {
		r.calls = make(map[string][]time.Time)
	}
	r.calls[service] = append(r.calls[service], r.now())
}

// TimeUntilReset returns how long until the oldest retained call leaves the
// window, floored at zero. It is zero when the service is not limited.
func (r *RateLimiter) TimeUntilReset(service string) time.Duration {
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	limit := r.getLimit(service)
	retained := r.prune(service, limit.WindowDuration)
	if len(retained) < limit.MaxRequests {
		return 0
	}

	wait := limit.WindowDuration - r.now().Sub(retained[0])
	if wait < 0 {
		return 0
	}
	return wait
}

// Penalize pushes the window out by filling it from now, typically after a
// provider 429 with a Retry-After hint. The next TimeUntilReset for the
// service will be at least retryAfter.
func (r *RateLimiter) Penalize(service string, retryAfter time.Duration) {
	if r == nil || retryAfter <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	limit := r.getLimit(service)
	if limit.WindowDuration <= 0 {
		return
	}

	// Synthesize a full window whose oldest entry expires after retryAfter.
	base := r.now().Add(retryAfter - limit.WindowDuration)
	stamps := make([]time.Time, limit.MaxRequests)
	for i := range stamps {
		stamps[i] = base
	}
	if r.calls == nil {
		r.calls = make(map[string][]time.Time)
	}
	r.calls[service] = stamps
}

// Status reports the current window occupancy for the observability surface.
func (r *RateLimiter) Status(service string) core.RateLimitStatus {
	status := core.RateLimitStatus{Service: service}
	if r == nil {
		return status
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	limit := r.getLimit(service)
	retained := r.prune(service, limit.WindowDuration)

	status.Current = len(retained)
	status.Limit = limit.MaxRequests
	status.Remaining = limit.MaxRequests - len(retained)
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if len(retained) >= limit.MaxRequests && len(retained) > 0 {
		if wait := limit.WindowDuration - r.now().Sub(retained[0]); wait > 0 {
			status.ResetIn = wait
		}
	}

	return status
}

// prune drops timestamps older than window and returns the retained slice.
// Callers must hold r.mu.
func (r *RateLimiter) prune(service string, window time.Duration) []time.Time {
	stamps := r.calls[service]
	if len(stamps) == 0 {
		return nil
	}

	cutoff := r.now().Add(-window)
	kept := 0
	for kept < len(stamps) && !stamps[kept].After(cutoff) {
		kept++
	}
	if kept > 0 {
		stamps = append([]time.Time(nil), stamps[kept:]...)
		if r.calls == nil {
			r.calls = make(map[string][]time.Time)
		}
		r.calls[service] = stamps
	}
	return stamps
}

func (r *RateLimiter) getLimit(service string) RateLimit {
	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}

	if limit, ok := limits[strings.TrimSpace(service)]; ok && limit.MaxRequests > 0 && limit.WindowDuration > 0 {
		return limit
	}

	return RateLimit{MaxRequests: 30, WindowDuration: time.Minute}
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
