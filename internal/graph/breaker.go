package graph

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// ErrCircuitOpen is returned by getSession-equivalent calls while the
// breaker is open.
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open — rejecting requests")

// circuitBreaker is a mutex-guarded three-state machine: CLOSED, OPEN,
// HALF_OPEN. It trips to OPEN after a configurable number of consecutive
// failures and, after a cooldown, allows a single half-open probe to
// decide whether to close again.
type circuitBreaker struct {
	mu sync.Mutex

	state            BreakerState
	threshold        int
	timeout          time.Duration
	failures         int
	lastFailure      time.Time
	trips            int
	halfOpenDeadline time.Time
}

func newCircuitBreaker(threshold int, timeout time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &circuitBreaker{
		state:     BreakerClosed,
		threshold: threshold,
		timeout:   timeout,
	}
}

// allow reports whether a call may proceed, transitioning OPEN -> HALF_OPEN
// once the cooldown has elapsed.
func (b *circuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		return true
	case BreakerOpen:
		if time.Since(b.lastFailure) >= b.timeout {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	}
	return false
}

// recordSuccess resets the failure count and closes the breaker.
func (b *circuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = BreakerClosed
}

// recordFailure increments the failure count and trips the breaker once
// the threshold is reached (or immediately, from half-open).
func (b *circuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()

	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.trips++
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.state = BreakerOpen
		b.trips++
	}
}

// trip forces the breaker open immediately, e.g. on initialization failure
// or a failed health check.
func (b *circuitBreaker) trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerOpen
	b.lastFailure = time.Now()
	b.trips++
}

func (b *circuitBreaker) currentState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

type breakerMetrics struct {
	State    BreakerState
	Failures int
	Trips    int
}

func (b *circuitBreaker) metrics() breakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return breakerMetrics{State: b.state, Failures: b.failures, Trips: b.trips}
}
