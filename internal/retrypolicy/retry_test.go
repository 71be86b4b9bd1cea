package retrypolicy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSucceedsOnFirstAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2}
	calls := 0
	err := p.Do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Factor: 1}
	calls := 0
	err := p.Do(context.Background(), func(error) bool { return true }, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 1}
	calls := 0
	err := p.Do(context.Background(), func(error) bool { return true }, func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsEarlyWhenShouldRetryIsFalse(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Factor: 1}
	calls := 0
	err := p.Do(context.Background(), func(error) bool { return false }, func(ctx context.Context) error {
		calls++
		return errors.New("permanent")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, Factor: 1}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func(error) bool { return true }, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, calls, 5)
}

func TestCircuitBreakerOpensAfterFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: 50 * time.Millisecond})

	require.Error(t, cb.Call(func() error { return errors.New("fail") }))
	require.Equal(t, Closed, cb.State())

	require.Error(t, cb.Call(func() error { return errors.New("fail") }))
	require.Equal(t, Open, cb.State())

	err := cb.Call(func() error { return nil })
	require.ErrorIs(t, err, ErrOpen)
}

func TestCircuitBreakerHalfOpensAfterTimeoutAndRecloses(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: 10 * time.Millisecond})

	require.Error(t, cb.Call(func() error { return errors.New("fail") }))
	require.Equal(t, Open, cb.State())

	time.Sleep(15 * time.Millisecond)

	require.NoError(t, cb.Call(func() error { return nil }))
	require.Equal(t, Closed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Millisecond})

	require.Error(t, cb.Call(func() error { return errors.New("fail") }))
	require.Equal(t, Open, cb.State())

	time.Sleep(15 * time.Millisecond)

	require.Error(t, cb.Call(func() error { return errors.New("still failing") }))
	require.Equal(t, Open, cb.State())
}
