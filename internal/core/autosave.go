package core

// autosave.go runs a periodic save for one session. It follows the same
// ticker loop as the session reaper: one goroutine, stopped by cancelling its
// context. Stop waits for the goroutine to exit, so once Stop returns no
// further saves can happen.

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutosaveInterval is how often drafts are written while work is in progress.
const DefaultAutosaveInterval = 30 * time.Second

// AutoSaver calls a save function on a fixed interval while running.
type AutoSaver struct {
	interval time.Duration
	save     func(ctx context.Context) error
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAutoSaver returns a stopped AutoSaver.
func NewAutoSaver(interval time.Duration, save func(ctx context.Context) error, log *slog.Logger) *AutoSaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &AutoSaver{interval: interval, save: save, log: log}
}

// Start begins saving. Calling Start on a running AutoSaver does nothing.
func (a *AutoSaver) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.loop(ctx, a.done)
}

// Running reports whether the save loop is active.
func (a *AutoSaver) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Stop cancels the loop and waits for it to exit.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *AutoSaver) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.save(ctx); err != nil && ctx.Err() == nil {
				a.log.Warn("autosave failed", "error", err)
			}
		}
	}
}
