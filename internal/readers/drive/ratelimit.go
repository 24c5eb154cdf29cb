package drive

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Conservative defaults well below the Drive API quota (10 req/sec/user).
const (
	requestsPerSecond = 8.0
	burstSize         = 10
	defaultBackoff    = 60 * time.Second
)

// rateLimiter is a token bucket with a backoff period set after quota
// errors from the API.
type rateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
	}
}

// Wait blocks until a request can be made, honouring any backoff first.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return r.limiter.Wait(ctx)
}

// recordQuotaError sets a backoff period after a 429/quota response.
func (r *rateLimiter) recordQuotaError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(defaultBackoff)
}
