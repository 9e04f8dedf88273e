package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Throttle bounds the request rate into the facade itself. This guards the
// process, not the upstream services; per-service quotas live in the
// orchestrator's sliding-window limiter.
func Throttle(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				WriteError(w, r, http.StatusTooManyRequests,
					"THROTTLED", "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
