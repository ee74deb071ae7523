package connector

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// retryConnect calls connectFn until it succeeds, the retries run out or ctx
// is done. The delay grows by the backoff factor up to MaxDelay.
func retryConnect(ctx context.Context, opts *RetryConfig, logger *slog.Logger, connectFn func(context.Context) error) error {
	if opts == nil || opts.MaxRetries <= 0 {
		return connectFn(ctx)
	}
	delay := opts.BaseDelay
	if delay == 0 {
		delay = time.Second
	}
	backoff := opts.Backoff
	if backoff < 1 {
		backoff = 2
	}

	var err error
	for i := 0; i < opts.MaxRetries; i++ {
		if err = connectFn(ctx); err == nil {
			return nil
		}
		logger.Warn("connect failed", "attempt", i+1, "retries", opts.MaxRetries, "delay", delay, "error", err)
		if i == opts.MaxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * backoff)
			if opts.MaxDelay > 0 && delay > opts.MaxDelay {
				delay = opts.MaxDelay
			}
		}
	}
	return fmt.Errorf("connector: failed to connect after %d retries: %w", opts.MaxRetries, err)
}
