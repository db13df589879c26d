package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestAutoSaver_SavesWhileRunning(t *testing.T) {
	var calls atomic.Int32
	a := NewAutoSaver(10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	if a.Running() {
		t.Error("new AutoSaver is running")
	}
	a.Start(context.Background())
	a.Start(context.Background()) // second start is ignored

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatalf("save called %d times, want at least 2", calls.Load())
	}

	a.Stop()
	after := calls.Load()
	time.Sleep(40 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Errorf("save called %d times after Stop", got-after)
	}
	if a.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestAutoSaver_StopsWithContext(t *testing.T) {
	var calls atomic.Int32
	a := NewAutoSaver(10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	cancel()
	time.Sleep(30 * time.Millisecond)
	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != n {
		t.Error("save kept running after context cancellation")
	}
	a.Stop()
}

func TestAutoSaver_StopWithoutStart(t *testing.T) {
	a := NewAutoSaver(0, func(context.Context) error { return nil }, nil)
	a.Stop()
	if a.interval != DefaultAutosaveInterval {
		t.Errorf("interval = %v, want %v", a.interval, DefaultAutosaveInterval)
	}
}
