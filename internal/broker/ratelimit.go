// Purpose: Owns ratelimit.go, per-client-session request throttling.
// Replaces the teacher's hand-rolled circuit breaker (internal/capture/
// rate_limit.go) with golang.org/x/time/rate, keyed per session so one
// noisy client cannot starve others sharing the same broker.
package broker

import (
	"sync"

	"golang.org/x/time/rate"
)

const (
	defaultRateLimit = rate.Limit(20) // requests per second
	defaultBurst     = 40
)

// RateLimiter hands out a token-bucket limiter per client session, created
// lazily on first use and discarded when the session disconnects.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter builds a RateLimiter with the default per-session rate.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    defaultRateLimit,
		burst:    defaultBurst,
	}
}

// Allow reports whether sessionID may send another request right now,
// consuming a token if so.
func (r *RateLimiter) Allow(sessionID string) bool {
	return r.limiterFor(sessionID).Allow()
}

func (r *RateLimiter) limiterFor(sessionID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[sessionID]
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters[sessionID] = l
	}
	return l
}

// Forget drops a session's limiter, freeing its bucket on disconnect.
func (r *RateLimiter) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, sessionID)
}
