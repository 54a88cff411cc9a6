package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int

	err := Retry(context.Background(), RetryConfig{Attempts: 3, Delay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	}, func(attempt int, err error) {
		retried = append(retried, attempt)
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Attempts: 2}, func() error {
		calls++
		return errors.New("permanent")
	}, nil)

	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 2, calls)
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Retry(ctx, RetryConfig{Attempts: 5, Delay: time.Hour}, func() error {
		calls++
		cancel()
		return errors.New("fail")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
