package scanner

import (
	"strings"
	"sync"
	"time"
)

// graphBreaker is the pipeline-side circuit breaker over graph writes,
// independent of graph.Service's own connection-level breaker (spec
// §4.4): the 3rd consecutive graph-write failure trips a cooldown window
// during which graph writes are skipped while vector+BM25 writes
// continue. Grounded on graph/breaker.go's mutex-guarded counter shape,
// generalized to this package's simpler allow/trip contract.
type graphBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	consecutiveFailures int
	trippedUntil        time.Time
}

func newGraphBreaker(threshold int, cooldown time.Duration) *graphBreaker {
	return &graphBreaker{threshold: threshold, cooldown: cooldown}
}

// allow reports whether a graph write should be attempted right now.
func (b *graphBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().After(b.trippedUntil)
}

func (b *graphBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
}

// recordFailure reports whether this failure tripped the breaker.
func (b *graphBreaker) recordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold {
		b.trippedUntil = time.Now().Add(b.cooldown)
		return true
	}
	return false
}

// isCriticalGraphError classifies "authentication failed" errors as
// critical: the whole scan must abort rather than merely skip graph
// writes, since retrying or falling back cannot recover from bad
// credentials.
func isCriticalGraphError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "authentication failed")
}
