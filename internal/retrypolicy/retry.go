// Package retrypolicy generalizes the teacher's core/retry_logic.go
// RetryHandler and core/circuit_breaker.go CircuitBreaker into the ambient
// retry/circuit-breaker primitives that internal/objectstore (Policy) and
// internal/orchestrator's upload breaker (CircuitBreaker) use, parameterized by internal/config.RetryConfig and
// internal/config.CircuitBreakerConfig instead of being wired to a
// fixed error-code allow-list.
package retrypolicy

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrOpen is returned by CircuitBreaker.Call when the circuit is open.
var ErrOpen = errors.New("circuit breaker is open")

// Policy is an exponential backoff schedule with optional jitter, grounded
// on core/retry_logic.go's basicRetryHandler.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	JitterPct   float64
}

// Do runs op up to p.MaxAttempts times, stopping early on success or on a
// context cancellation, retrying only errors for which shouldRetry(err)
// returns true.
func (p Policy) Do(ctx context.Context, shouldRetry func(error) bool, op func(ctx context.Context) error) error {
	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts || (shouldRetry != nil && !shouldRetry(lastErr)) {
			return lastErr
		}

		wait := p.jittered(delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = time.Duration(float64(delay) * p.Factor)
	}
	return lastErr
}

func (p Policy) jittered(d time.Duration) time.Duration {
	if p.JitterPct <= 0 {
		return d
	}
	spread := float64(d) * p.JitterPct
	offset := (rand.Float64()*2 - 1) * spread
	return d + time.Duration(offset)
}

// State is a circuit breaker state, mirroring core.CircuitBreakerState.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// CircuitBreaker is a direct generalization of core/circuit_breaker.go's
// CircuitBreaker: same three-state machine, same Call(fn) wrapper, with the
// mutex held across canCall/onSuccess/onFailure exactly as the teacher does
// (the function itself runs with the lock released).
type CircuitBreaker struct {
	cfg   BreakerConfig
	state State

	failureCount    int
	successCount    int
	lastFailureTime time.Time

	mu sync.Mutex
}

func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: Closed}
}

// Call executes fn under circuit breaker protection, returning ErrOpen
// without invoking fn if the circuit is open and the timeout hasn't
// elapsed.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if err := cb.canCallLocked(); err != nil {
		cb.mu.Unlock()
		return err
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	if err != nil {
		cb.onFailureLocked()
	} else {
		cb.onSuccessLocked()
	}
	cb.mu.Unlock()
	return err
}

func (cb *CircuitBreaker) canCallLocked() error {
	switch cb.state {
	case Open:
		if time.Since(cb.lastFailureTime) >= cb.cfg.OpenTimeout {
			cb.state = HalfOpen
			cb.successCount = 0
			return nil
		}
		return ErrOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) onSuccessLocked() {
	switch cb.state {
	case Closed:
		cb.failureCount = 0
	case HalfOpen:
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.state = Closed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

func (cb *CircuitBreaker) onFailureLocked() {
	cb.failureCount++
	cb.lastFailureTime = time.Now()
	switch cb.state {
	case Closed:
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.state = Open
		}
	case HalfOpen:
		cb.state = Open
		cb.successCount = 0
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
