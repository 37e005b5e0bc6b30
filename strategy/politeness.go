package strategy

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// OriginLimiter enforces a minimum spacing between consecutive requests to
// the same origin. Different origins never wait on each other; the lock is
// held only to look up the per-host limiter, never across I/O.
type OriginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// NewOriginLimiter creates a limiter allowing one request per minDelay per
// origin. A zero or negative interval disables the limiter.
func NewOriginLimiter(minDelay float64) *OriginLimiter {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Limit(1.0 / minDelay)
	}
	return &OriginLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Wait blocks until a request to urlStr's origin is allowed, or the context
// is cancelled.
func (l *OriginLimiter) Wait(ctx context.Context, urlStr string) error {
	host := "?"
	if parsed, err := url.Parse(urlStr); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, 1)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	return limiter.Wait(ctx)
}
