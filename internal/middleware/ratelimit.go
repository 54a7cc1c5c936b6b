package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// WithRateLimit applies a token-bucket limit per bucket id. Requests
// without a bucket header share one anonymous limiter. Limiters are kept
// for the process lifetime; the key space is bounded by active buckets.
func WithRateLimit(rps rate.Limit, burst int) func(http.Handler) http.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rps, burst)
			limiters[key] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(r.Header.Get(BucketHeader)).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
