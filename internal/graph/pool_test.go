package graph

import (
	"context"
	"testing"
	"time"
)

func TestPool_AcquireRelease_ReadSessionIsPooled(t *testing.T) {
	p := newPool(4, time.Second)

	s, err := p.Acquire(context.Background(), SessionRead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Release()

	m := p.metrics()
	if m.Created != 1 {
		t.Errorf("expected 1 created, got %d", m.Created)
	}
	if m.Idle != 1 {
		t.Errorf("expected read session to be pooled, got idle=%d", m.Idle)
	}
}

func TestPool_WriteSessionsAreNeverPooled(t *testing.T) {
	p := newPool(4, time.Second)

	s, err := p.Acquire(context.Background(), SessionWrite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Release()

	m := p.metrics()
	if m.Idle != 0 {
		t.Errorf("expected write session to never be pooled, got idle=%d", m.Idle)
	}
	if m.ClosedSessions != 1 {
		t.Errorf("expected write session to be closed, got closed=%d", m.ClosedSessions)
	}
}

func TestPool_AcquisitionTimesOutWhenFull(t *testing.T) {
	p := newPool(1, 20*time.Millisecond)

	s1, err := p.Acquire(context.Background(), SessionWrite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s1.Release()

	_, err = p.Acquire(context.Background(), SessionRead)
	if err == nil {
		t.Fatal("expected acquisition to time out while pool is saturated")
	}

	m := p.metrics()
	if m.AcquisitionFailures != 1 {
		t.Errorf("expected 1 acquisition failure, got %d", m.AcquisitionFailures)
	}
}

func TestPool_ReleaseAboveHalfCapacityCloses(t *testing.T) {
	p := newPool(4, time.Second)

	var sessions []*Session
	for i := 0; i < 3; i++ {
		s, err := p.Acquire(context.Background(), SessionRead)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sessions = append(sessions, s)
	}
	for _, s := range sessions {
		s.Release()
	}

	m := p.metrics()
	// maxPoolSize/2 == 2: first two releases pool, the third closes.
	if m.Idle != 2 {
		t.Errorf("expected 2 pooled sessions, got %d", m.Idle)
	}
	if m.ClosedSessions != 1 {
		t.Errorf("expected 1 closed session past half capacity, got %d", m.ClosedSessions)
	}
}
