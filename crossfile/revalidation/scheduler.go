// Package revalidation implements the cross-file engine's real-time update
// pipeline: a debounced, cancellable scheduler (§4.9), a monotonic
// diagnostics publish gate (§4.10), and an activity tracker feeding
// priority scores to both the scheduler and the resolver's backward
// ascent (§4.12).
package revalidation

import (
	"context"
	"sync"
	"time"
)

// pendingEntry tracks one URI's scheduled revalidation, following the same
// cancel-then-reschedule shape as the editor's per-document debounce.
type pendingEntry struct {
	cancel context.CancelFunc
	timer  *time.Timer
}

// Scheduler debounces revalidation work per URI, cancelling any prior
// pending or in-flight work for that URI when new work is scheduled.
//
// The zero value is not usable; construct with [NewScheduler].
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*pendingEntry
}

// NewScheduler constructs an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[string]*pendingEntry)}
}

// Schedule cancels any pending or running work previously scheduled for
// uri, then schedules work to run after delay. work receives a context
// that is cancelled if Schedule, Cancel, or CancelAll is called again for
// uri before the debounce elapses; it must check ctx.Err() before
// publishing anything, since cancellation is cooperative.
func (s *Scheduler) Schedule(uri string, delay time.Duration, work func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pending[uri]; ok {
		existing.timer.Stop()
		existing.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := &pendingEntry{cancel: cancel}

	entry.timer = time.AfterFunc(delay, func() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		work(ctx)

		s.mu.Lock()
		if s.pending[uri] == entry {
			delete(s.pending, uri)
		}
		s.mu.Unlock()
	})

	s.pending[uri] = entry
}

// Cancel cancels any pending or in-flight work for uri, if any.
func (s *Scheduler) Cancel(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pending[uri]; ok {
		existing.timer.Stop()
		existing.cancel()
		delete(s.pending, uri)
	}
}

// CancelAll cancels every pending or in-flight revalidation.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for uri, existing := range s.pending {
		existing.timer.Stop()
		existing.cancel()
		delete(s.pending, uri)
	}
}

// Pending reports whether uri currently has scheduled or in-flight work.
func (s *Scheduler) Pending(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[uri]
	return ok
}
