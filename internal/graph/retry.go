package graph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ErrorCode is a structured connection-error code, when the backend
// supplies one. Most errors surfaced by the surrealdb.go driver today are
// plain strings, so Code is usually empty and classification
// falls back to the message-substring check in isConnectionError.
type ErrorCode string

const (
	ErrServiceUnavailable  ErrorCode = "ServiceUnavailable"
	ErrSessionExpired      ErrorCode = "SessionExpired"
	ErrAuthToken           ErrorCode = "Security.AUTHTOKEN"
	ErrTransactionTerm     ErrorCode = "Transaction.Terminated"
	ErrNetworkUnreachable  ErrorCode = "Network.Unreachable"
	ErrDatabaseUnavailable ErrorCode = "Database.Unavailable"
	ErrDeadlockDetected    ErrorCode = "DeadlockDetected"
	ErrTransactionCommit   ErrorCode = "TransactionCommitFailed"
)

var connectionErrorCodes = map[ErrorCode]bool{
	ErrServiceUnavailable:  true,
	ErrSessionExpired:      true,
	ErrAuthToken:           true,
	ErrTransactionTerm:     true,
	ErrNetworkUnreachable:  true,
	ErrDatabaseUnavailable: true,
	ErrDeadlockDetected:    true,
	ErrTransactionCommit:   true,
}

var connectionErrorNames = map[string]bool{
	"Neo4jError":              true,
	"ConnectionError":         true,
	"ServiceUnavailableError": true,
	"SessionExpiredError":     true,
}

// fallbackTimeoutSubstrings is the last-resort message check used only
// when an error carries no structured code or name. Bare substrings like
// "connection", "pool", "network" or "ECONNREFUSED" are deliberately NOT
// included here — they produce false positives on errors that merely
// mention those words without being connection failures.
var fallbackTimeoutSubstrings = []string{
	"timeout", "etimedout", "connection timeout", "connect timeout",
}

// ClassifiedError carries the structured fields a driver can attach to an
// error to avoid falling back to message sniffing.
type ClassifiedError struct {
	Code     ErrorCode
	Name     string
	Message  string
	Deadlock bool
}

func (e *ClassifiedError) Error() string { return e.Message }

// NewClassifiedError wraps msg with an explicit structured code.
func NewClassifiedError(code ErrorCode, msg string) *ClassifiedError {
	return &ClassifiedError{Code: code, Message: msg, Deadlock: code == ErrDeadlockDetected}
}

// isConnectionError implements spec §4.3.4's classifier: a known structured
// code or name, or, only in the absence of either, a message-substring
// fallback restricted to timeout-shaped phrases.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		if ce.Code != "" {
			return connectionErrorCodes[ce.Code]
		}
		if ce.Name != "" {
			return connectionErrorNames[ce.Name]
		}
		return containsAny(strings.ToLower(ce.Message), fallbackTimeoutSubstrings)
	}

	return containsAny(strings.ToLower(err.Error()), fallbackTimeoutSubstrings)
}

func isDeadlock(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Deadlock || ce.Code == ErrDeadlockDetected
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// RetryOptions configures executeWithRetry.
type RetryOptions struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	IsConnectionTest bool
}

// backoffDelay computes the delay for 0-based attempt k: min(initialDelay *
// 2^k + uniform(0, 0.1 * initialDelay * 2^k), maxDelay). P5 requires the
// observed delay to land in [initialDelay*2^k, min(maxDelay,
// initialDelay*2^k*1.1)].
func backoffDelay(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	base := float64(initialDelay) * float64(uint64(1)<<uint(attempt))
	jitter := rand.Float64() * 0.1 * base
	delay := time.Duration(base + jitter)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// executeWithRetry runs fn, retrying on connection-classified errors (or
// unconditionally when opts.IsConnectionTest is set) up to opts.MaxRetries
// additional attempts, sleeping a jittered exponential backoff between
// attempts. It updates the service's counters and circuit breaker as it
// goes, and returns the last error if every attempt fails.
func (svc *Service) executeWithRetry(ctx context.Context, op string, opts RetryOptions, fn func(ctx context.Context) error) error {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}

	var lastErr error
	start := time.Now()

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			svc.breaker.recordSuccess()
			svc.recordSlowQuery(op, time.Since(start))
			return nil
		}

		lastErr = err
		svc.metrics.incTotalErrors()

		retryable := isConnectionError(err) || opts.IsConnectionTest
		if isConnectionError(err) {
			svc.metrics.incConnectionErrors()
			svc.breaker.recordFailure()
			svc.metrics.incAcquisitionFailures()
		}
		if isDeadlock(err) {
			svc.metrics.incDeadlocks()
			if svc.metrics.deadlockCount() >= deadlockBreakerThreshold {
				svc.breaker.trip()
			}
		}

		if !retryable || attempt == opts.MaxRetries {
			break
		}

		delay := backoffDelay(attempt, opts.InitialDelay, opts.MaxDelay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s: %w", op, lastErr)
}

const deadlockBreakerThreshold = 5

// executeWithTimeout races fn against a timer, failing with a descriptive
// error if fn does not return in time.
func executeWithTimeout(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("query timeout after %dms: %s", timeout.Milliseconds(), op)
	}
}
