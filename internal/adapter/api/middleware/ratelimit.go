package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedLimiters caps the per-identity limiter map. When the cap is hit
// the oldest limiter is evicted; that tenant simply gets a fresh burst token.
const maxTrackedLimiters = 1024

// PerTenantRateLimit throttles requests per tenant identity path segment.
// perMinute <= 0 disables throttling entirely. There is deliberately no
// mutual exclusion here: overlapping jobs for the same tenant stay allowed,
// this only slows down double submissions when an operator turns it on.
func PerTenantRateLimit(perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)
	var order []string

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[key]; ok {
			return l
		}
		if len(order) >= maxTrackedLimiters {
			delete(limiters, order[0])
			order = order[1:]
		}
		l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		limiters[key] = l
		order = append(order, key)
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := r.PathValue("identity")
			if !limiterFor(identity).Allow() {
				logger.Warn("dispatch rate limit exceeded", "identity", identity)
				http.Error(w, "Too many job requests for tenant", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
