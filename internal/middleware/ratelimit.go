package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL  = 10 * time.Minute
	limiterMaxKeys  = 10000
	retryAfterValue = "1"
)

// RateLimiter keeps one token bucket per client address
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewRateLimiter allows rps requests per second per client, bursting to burst
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:         rate.Limit(rps),
		burst:       burst,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiterFor(key).Allow()
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) > limiterIdleTTL || len(rl.limiters) >= limiterMaxKeys {
		rl.cleanup(now)
	}

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastUsed = now
	return entry.limiter
}

// cleanup drops buckets that have not been used recently
func (rl *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-limiterIdleTTL)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
	rl.lastCleanup = now
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientKey(r)) {
			w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(float64(rl.rps), 'f', -1, 64))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", retryAfterValue)
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by forwarded address or remote host
func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
