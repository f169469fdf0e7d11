package graph

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SessionMode distinguishes read sessions (pooled) from write sessions
// (never pooled — isolation guarantee).
type SessionMode string

const (
	SessionRead  SessionMode = "read"
	SessionWrite SessionMode = "write"
)

// Session is a handle returned by Pool.Acquire. Release must be called
// exactly once.
type Session struct {
	Mode     SessionMode
	pool     *Pool
	pooled   bool
	released bool
}

// Release returns a read session to the pool if there is room for it,
// otherwise closes it. Write sessions are always closed.
func (s *Session) Release() {
	if s.released {
		return
	}
	s.released = true
	s.pool.release(s)
}

// PoolMetrics mirrors spec §4.3.1's exposed counters.
type PoolMetrics struct {
	Created             int
	Idle                int
	Active               int
	AcquisitionAttempts int
	AcquisitionFailures int
	ClosedSessions      int
}

// Pool bounds concurrent graph sessions. Read sessions are pooled up to
// maxPoolSize/2 on release; write sessions are never pooled, satisfying the
// write-isolation guarantee. Acquisition blocks (up to acquisitionTimeout)
// when the pool is at maxPoolSize.
type Pool struct {
	mu sync.Mutex

	maxPoolSize        int
	acquisitionTimeout time.Duration

	created             int
	idle                int
	closedSessions      int
	acquisitionAttempts int
	acquisitionFailures int

	sem chan struct{}
}

func newPool(maxPoolSize int, acquisitionTimeout time.Duration) *Pool {
	if maxPoolSize <= 0 {
		maxPoolSize = 50
	}
	if acquisitionTimeout <= 0 {
		acquisitionTimeout = 30 * time.Second
	}
	return &Pool{
		maxPoolSize:        maxPoolSize,
		acquisitionTimeout: acquisitionTimeout,
		sem:                make(chan struct{}, maxPoolSize),
	}
}

// Acquire gets a session slot of the given mode, blocking until one is
// available or acquisitionTimeout elapses.
func (p *Pool) Acquire(ctx context.Context, mode SessionMode) (*Session, error) {
	p.mu.Lock()
	p.acquisitionAttempts++
	p.mu.Unlock()

	timeout, cancel := context.WithTimeout(ctx, p.acquisitionTimeout)
	defer cancel()

	select {
	case p.sem <- struct{}{}:
		p.mu.Lock()
		p.created++
		p.mu.Unlock()
		return &Session{Mode: mode, pool: p}, nil
	case <-timeout.Done():
		p.mu.Lock()
		p.acquisitionFailures++
		p.mu.Unlock()
		return nil, fmt.Errorf("acquire %s session: %w", mode, timeout.Err())
	}
}

// release returns a read session to the pool when under half capacity;
// otherwise (and always for write sessions) it is closed.
func (p *Pool) release(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	<-p.sem

	if s.Mode == SessionRead && p.idle < p.maxPoolSize/2 {
		p.idle++
		s.pooled = true
		return
	}
	p.closedSessions++
}

func (p *Pool) metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	active := p.created - p.idle - p.closedSessions
	if active < 0 {
		active = 0
	}
	return PoolMetrics{
		Created:             p.created,
		Idle:                p.idle,
		Active:              active,
		AcquisitionAttempts: p.acquisitionAttempts,
		AcquisitionFailures: p.acquisitionFailures,
		ClosedSessions:      p.closedSessions,
	}
}
