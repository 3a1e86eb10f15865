package jitter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_Bounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := Duration(100*time.Millisecond, DefaultJitter)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestExponentialBackoff_CappedAtMax(t *testing.T) {
	d := ExponentialBackoff(time.Second, 4*time.Second, 10, 0)
	assert.Equal(t, 4*time.Second, d)

	d = ExponentialBackoff(time.Second, time.Minute, 2, 0)
	assert.Equal(t, 4*time.Second, d)
}

var errTransient = errors.New("connection refused")

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	retries := 0
	err := Retry(context.Background(),
		Policy{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond},
		func(err error) bool { return errors.Is(err, errTransient) },
		func(int, time.Duration, error) { retries++ },
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("syntax error")
	calls := 0
	err := Retry(context.Background(),
		Policy{Attempts: 5, Base: time.Millisecond, Max: time.Millisecond},
		func(err error) bool { return errors.Is(err, errTransient) },
		nil,
		func(context.Context) error {
			calls++
			return permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Retry(ctx,
		Policy{Attempts: 5, Base: time.Hour, Max: time.Hour},
		func(error) bool { return true },
		func(int, time.Duration, error) { cancel() },
		func(context.Context) error { return errTransient })

	assert.ErrorIs(t, err, context.Canceled)
}
