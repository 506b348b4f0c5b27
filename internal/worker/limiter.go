package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"masthead/internal/model"
)

// Limiter implements per-actor rate limiting. An actor is any logical
// caller identity: a user ID, an IP, a route name.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Acquire consumes one token for the actor, or returns a RateLimitError
// carrying the retry-after duration. It never blocks.
func (l *Limiter) Acquire(actor string) error {
	limiter := l.getLimiter(actor)

	res := limiter.Reserve()
	if !res.OK() {
		return &model.RateLimitError{Actor: actor, RetryAfter: time.Second}
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return &model.RateLimitError{Actor: actor, RetryAfter: delay}
	}
	return nil
}

// Wait blocks until the actor may proceed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, actor string) error {
	return l.getLimiter(actor).Wait(ctx)
}

// Allow checks if a request is allowed without consuming a retry-after hint
func (l *Limiter) Allow(actor string) bool {
	return l.getLimiter(actor).Allow()
}

// getLimiter returns the rate limiter for an actor
func (l *Limiter) getLimiter(actor string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[actor]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[actor]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[actor] = limiter

	return limiter
}

// SetActorRate sets a custom rate limit for a specific actor
func (l *Limiter) SetActorRate(actor string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[actor] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
