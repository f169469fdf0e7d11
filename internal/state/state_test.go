package state

import "testing"

func TestManager_InitialStateIsIdleAndHealthy(t *testing.T) {
	m := NewManager()
	snap := m.GetCurrentStatus()

	if snap.Vector.Status != StatusIdle || snap.Graph.Status != StatusIdle {
		t.Errorf("expected both subsystems idle at start, got vector=%s graph=%s", snap.Vector.Status, snap.Graph.Status)
	}
	if snap.Health != HealthHealthy {
		t.Errorf("expected healthy at start, got %s", snap.Health)
	}
}

func TestManager_HealthDerivation(t *testing.T) {
	tests := []struct {
		name         string
		vectorErr    bool
		graphErr     bool
		wantHealth   Health
		wantDegraded bool
		wantFailed   bool
	}{
		{"both ok", false, false, HealthHealthy, false, false},
		{"vector error only", true, false, HealthDegraded, true, false},
		{"graph error only", false, true, HealthDegraded, true, false},
		{"both error", true, true, HealthFailed, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			if tt.vectorErr {
				m.SetVectorStatus(StatusError, "boom")
			} else {
				m.SetVectorStatus(StatusOK, "")
			}
			if tt.graphErr {
				m.SetGraphStatus(StatusError, "boom")
			} else {
				m.SetGraphStatus(StatusOK, "")
			}

			snap := m.GetCurrentStatus()
			if snap.Health != tt.wantHealth {
				t.Errorf("health = %s, want %s", snap.Health, tt.wantHealth)
			}
			if m.IsSystemDegraded() != tt.wantDegraded {
				t.Errorf("IsSystemDegraded() = %v, want %v", m.IsSystemDegraded(), tt.wantDegraded)
			}
			if m.IsSystemFailed() != tt.wantFailed {
				t.Errorf("IsSystemFailed() = %v, want %v", m.IsSystemFailed(), tt.wantFailed)
			}
		})
	}
}

func TestManager_ConsecutiveFailuresResetOnNonErrorTransition(t *testing.T) {
	m := NewManager()
	m.SetVectorStatus(StatusError, "e1")
	m.SetVectorStatus(StatusError, "e2")

	status, _ := m.GetComponentStatus("vector")
	if status.ConsecutiveFailures != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", status.ConsecutiveFailures)
	}

	m.SetVectorStatus(StatusOK, "")
	status, _ = m.GetComponentStatus("vector")
	if status.ConsecutiveFailures != 0 {
		t.Errorf("expected consecutive failures to reset on recovery, got %d", status.ConsecutiveFailures)
	}
}

func TestManager_SetStandbySetsBothSidesIdle(t *testing.T) {
	m := NewManager()
	m.SetVectorStatus(StatusError, "e")
	m.SetGraphStatus(StatusOK, "")

	m.SetStandby()
	snap := m.GetCurrentStatus()
	if snap.Vector.Status != StatusIdle || snap.Graph.Status != StatusIdle {
		t.Errorf("expected standby to idle both sides, got vector=%s graph=%s", snap.Vector.Status, snap.Graph.Status)
	}
}

func TestManager_SetSystemErrorPreservesGraphSide(t *testing.T) {
	m := NewManager()
	m.SetGraphStatus(StatusOK, "graph is fine")

	m.SetSystemError("system failure")

	snap := m.GetCurrentStatus()
	if snap.Vector.Status != StatusError {
		t.Errorf("expected vector side to be set to error, got %s", snap.Vector.Status)
	}
	if snap.Graph.Status != StatusOK {
		t.Errorf("expected graph side to be preserved, got %s", snap.Graph.Status)
	}
}

func TestManager_OnProgressUpdate_DisposeStopsDelivery(t *testing.T) {
	m := NewManager()

	var received int
	disposable := m.OnProgressUpdate(func(Snapshot) {
		received++
	})

	m.ReportProgress(1, 10, "working")
	if received != 1 {
		t.Fatalf("expected 1 event delivered, got %d", received)
	}

	disposable.Dispose()
	m.ReportProgress(2, 10, "still working")
	if received != 1 {
		t.Errorf("expected no further events after dispose, got %d total", received)
	}
}

func TestManager_ListenersInvokedInRegistrationOrder(t *testing.T) {
	m := NewManager()

	var order []int
	m.OnProgressUpdate(func(Snapshot) { order = append(order, 1) })
	m.OnProgressUpdate(func(Snapshot) { order = append(order, 2) })
	m.OnProgressUpdate(func(Snapshot) { order = append(order, 3) })

	m.ReportProgress(0, 1, "go")

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("expected %d invocations, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("invocation order = %v, want %v", order, want)
		}
	}
}

func TestManager_ListenerPanicDoesNotBreakDelivery(t *testing.T) {
	m := NewManager()

	var secondCalled bool
	m.OnProgressUpdate(func(Snapshot) { panic("boom") })
	m.OnProgressUpdate(func(Snapshot) { secondCalled = true })

	m.ReportProgress(1, 1, "done")

	if !secondCalled {
		t.Error("expected the second listener to still run after the first panicked")
	}
}
