package core

// scheduler.go runs the idle-session reaper. Sessions whose operator has gone
// quiet are torn down so their autosave goroutines do not run forever; their
// drafts stay in the store and can be resumed later.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often idle sessions are looked for.
const DefaultSweepInterval = time.Minute

// StartReaper removes idle sessions every interval until ctx is cancelled.
// It blocks, so run it in its own goroutine.
func (s *Service) StartReaper(ctx context.Context, interval time.Duration) {
	if s.cfg.IdleTimeout <= 0 {
		slog.Info("session reaper disabled")
		<-ctx.Done()
		return
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session reaper started",
		"idle_timeout", s.cfg.IdleTimeout,
		"interval", interval,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper stopped")
			return
		case <-ticker.C:
			s.SweepIdle(ctx)
		}
	}
}

// SweepIdle tears down sessions unused for longer than the idle timeout.
// Sessions with a commit in flight are never reaped. It returns the number
// of sessions removed.
func (s *Service) SweepIdle(ctx context.Context) int {
	if s.cfg.IdleTimeout <= 0 {
		return 0
	}
	start := time.Now()
	cutoff := s.now().Add(-s.cfg.IdleTimeout)

	s.mu.Lock()
	var idle []*Session
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := sess.lastSeen.Before(cutoff) && !sess.ctrl.Committing()
		sess.mu.Unlock()
		if expired {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		s.teardown(ctx, sess)
		sess.log.Info("idle session reaped")
	}
	if len(idle) > 0 {
		slog.Info("session sweep completed",
			"reaped", len(idle),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return len(idle)
}
