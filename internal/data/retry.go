package data

import (
	"context"
	"fmt"
	"time"
)

// BackoffConfig bounds the reconnect-and-retry loop around store operations.
// This is infrastructure-level retry for transient connectivity failures; it
// is entirely separate from the per-job attempt counter.
type BackoffConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the sleep before the second attempt; it doubles on each
	// subsequent attempt.
	BaseDelay time.Duration
	// MaxDelay caps the per-attempt sleep. Zero means uncapped.
	MaxDelay time.Duration
}

// WithBackoff runs op, retrying with exponential backoff until it succeeds,
// the attempt budget is spent, or the context is cancelled.
func WithBackoff(ctx context.Context, cfg BackoffConfig, op func(context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts-1 {
			break
		}

		sleep := delay << attempt
		if cfg.MaxDelay > 0 && sleep > cfg.MaxDelay {
			sleep = cfg.MaxDelay
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}
