package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// authenticatedQuota is the authenticated API quota (5000/hour).
	authenticatedQuota = 5000

	// proactiveRate keeps us comfortably below the quota (~4320/hour).
	proactiveRate = 1.2

	// minBuffer is the reserve below which we wait for the quota reset.
	minBuffer = 100

	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// rateLimiter combines a proactive token bucket with reactive quota
// tracking from the API response headers.
type rateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	bucket    *rate.Limiter
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		remaining: authenticatedQuota,
		bucket:    rate.NewLimiter(rate.Limit(proactiveRate), 1),
	}
}

// Wait blocks until it is safe to make a request.
func (r *rateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining < minBuffer && time.Now().Before(resetTime) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(resetTime)):
		}
	}

	return nil
}

// update refreshes quota state from response headers.
func (r *rateLimiter) update(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := resp.Header.Get(headerRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}
	if reset := resp.Header.Get(headerRateReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.resetTime = time.Unix(val, 0)
		}
	}
}
