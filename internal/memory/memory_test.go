package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestMonitor(limit int64, alloc *atomic.Uint64) *Monitor {
	m := NewMonitor(Config{
		LimitBytes:        limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Millisecond,
	})
	m.read = alloc.Load
	return m
}

func TestMonitorPausesAndResumes(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)

	tests := []struct {
		name   string
		alloc  uint64
		paused bool
	}{
		{"below high", 500, false},
		{"between marks stays running", 800, false},
		{"critical pauses", 900, true},
		{"between marks stays paused", 750, true},
		{"below high resumes", 600, false},
	}

	for _, tt := range tests {
		alloc.Store(tt.alloc)
		m.check()
		if got := m.Paused(); got != tt.paused {
			t.Errorf("%s: Paused() = %v, want %v", tt.name, got, tt.paused)
		}
	}

	if got := m.Usage(); got != 0.6 {
		t.Errorf("Usage() = %v, want 0.6", got)
	}
}

func TestMonitorWait(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)

	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() while running = %v", err)
	}

	alloc.Store(950)
	m.check()

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait() returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	alloc.Store(100)
	m.check()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() after resume = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after resume")
	}
}

func TestMonitorWaitHonorsContext(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)
	alloc.Store(999)
	m.check()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want DeadlineExceeded", err)
	}

	m.Stop()
	m.Stop()
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait() after Stop = %v", err)
	}
}

func TestMonitorLoop(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(990)
	m := newTestMonitor(1000, &alloc)
	m.Start()
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for !m.Paused() {
		if time.Now().After(deadline) {
			t.Fatal("monitor never sampled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitorWithoutLimit(t *testing.T) {
	var alloc atomic.Uint64
	alloc.Store(1 << 40)
	m := newTestMonitor(0, &alloc)
	m.limit = 0
	m.check()

	if m.Paused() {
		t.Error("monitor without a limit must never pause")
	}
	if m.Usage() != 0 {
		t.Errorf("Usage() = %v, want 0", m.Usage())
	}
}
