package worker

import (
	"context"
	"time"
)

type RetryConfig struct {
	Attempts int
	// Delay grows linearly: attempt n waits n*Delay.
	Delay time.Duration
}

// Retry runs fn until it succeeds, the attempts run out or ctx is done.
// onRetry, if set, is told about every failed attempt that will be retried.
func Retry(ctx context.Context, config RetryConfig, fn func() error, onRetry func(attempt int, err error)) error {
	if config.Attempts <= 0 {
		config.Attempts = 1
	}

	var err error
	for attempt := 0; attempt < config.Attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * config.Delay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if onRetry != nil && attempt+1 < config.Attempts {
			onRetry(attempt+1, err)
		}
	}
	return err
}
