// ABOUTME: Per-identity fixed-window rate limiting for inbound events.
// ABOUTME: Consulted by the dispatcher before any session lock or LLM work begins.

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates inbound events per identity. A denied event produces a
// distinct rate-limited outcome upstream, never an error reply.
type Limiter interface {
	// Allow reports whether the identity may proceed. The error return
	// is for backend failures (e.g. Redis unreachable), not denials.
	Allow(ctx context.Context, identity string) (bool, error)
}

// windowState tracks one identity's count within its current window.
type windowState struct {
	count   int
	started time.Time
}

// Window is an in-memory fixed-window limiter: at most maxEvents per
// identity per window. Counting restarts when the window elapses.
type Window struct {
	mu        sync.Mutex
	states    map[string]*windowState
	maxEvents int
	window    time.Duration
	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// NewWindow creates an in-memory limiter allowing maxEvents per window
// per identity. Idle identity state is swept in the background.
func NewWindow(maxEvents int, window time.Duration) *Window {
	w := &Window{
		states:    make(map[string]*windowState),
		maxEvents: maxEvents,
		window:    window,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	go w.sweepLoop()
	return w
}

// Allow increments the identity's count in its current window and
// reports whether it is within the limit. Increment-and-check is a
// single critical section, so concurrent callers for one identity
// cannot both consume the last slot.
func (w *Window) Allow(_ context.Context, identity string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	st, ok := w.states[identity]
	if !ok || now.Sub(st.started) >= w.window {
		w.states[identity] = &windowState{count: 1, started: now}
		return true, nil
	}

	if st.count >= w.maxEvents {
		return false, nil
	}
	st.count++
	return true, nil
}

// sweepLoop drops identity state whose window has long elapsed.
func (w *Window) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.done:
			return
		}
	}
}

func (w *Window) sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for identity, st := range w.states {
		if now.Sub(st.started) >= w.window {
			delete(w.states, identity)
		}
	}
}

// Close stops the background sweeper. Safe to call multiple times.
func (w *Window) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}
