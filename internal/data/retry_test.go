package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBackoffSucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), BackoffConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithBackoffExhaustsAttempts(t *testing.T) {
	calls := 0
	opErr := errors.New("still down")
	err := WithBackoff(context.Background(), BackoffConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}, func(context.Context) error {
		calls++
		return opErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, opErr)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestWithBackoffStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithBackoff(ctx, BackoffConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Hour,
	}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithBackoffZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), BackoffConfig{}, func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
