package services

import (
	"context"
	"time"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// Retry policy for transient upstream failures (rate limits, timeouts).
const (
	// DefaultRetryAttempts bounds how many times a transient failure is
	// retried before surfacing as a per-document error.
	DefaultRetryAttempts = 4

	// DefaultRetryBaseDelay is the first backoff delay; it doubles on
	// each subsequent attempt.
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// withRetry runs fn, retrying with exponential backoff while the error is
// classified transient by domain.IsTransient. Non-transient errors
// propagate immediately without retry. Context cancellation wins over the
// backoff sleep.
func withRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !domain.IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		logger.Warn("Transient failure (attempt %d/%d), retrying in %s: %v", attempt, attempts, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
