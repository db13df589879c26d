package core

// commit_limiter.go bounds how many commits may talk to the generation
// service at once. Sessions commit independently, so without a bound a burst
// of confirmations would fan out into as many concurrent generation runs.
//
// When all slots are taken a commit waits up to maxWait and then fails with
// ErrTooManyCommits. WaitForDrain lets shutdown wait for in-flight commits.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyCommits is returned when no commit slot frees up within the wait limit.
var ErrTooManyCommits = errors.New("too many commits in progress, please try again later")

// DefaultMaxConcurrentCommits is the default limit for parallel commits.
const DefaultMaxConcurrentCommits = 4

// DefaultMaxCommitWait is how long a commit waits for a slot before giving up.
const DefaultMaxCommitWait = 30 * time.Second

// CommitLimiter is a counting semaphore for outbound generation calls.
type CommitLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewCommitLimiter creates a limiter allowing maxConcurrent simultaneous commits.
func NewCommitLimiter(maxConcurrent int, maxWait time.Duration) *CommitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCommits
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxCommitWait
	}
	return &CommitLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to the limiter's maxWait.
// The caller must call Release once the commit finishes.
func (l *CommitLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyCommits
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *CommitLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *CommitLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of commits holding a slot.
func (l *CommitLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *CommitLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *CommitLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no commit holds a slot or ctx is done.
func (l *CommitLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CommitLimiterStatus is reported by the health endpoint.
type CommitLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *CommitLimiter) Status() CommitLimiterStatus {
	return CommitLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
