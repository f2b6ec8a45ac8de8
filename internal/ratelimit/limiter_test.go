// ABOUTME: Tests for the in-memory fixed-window limiter.
// ABOUTME: Validates the deny-after-limit, window-reset, and per-identity isolation properties.

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frozenWindow returns a limiter whose clock is controlled by the test.
func frozenWindow(maxEvents int, window time.Duration) (*Window, *time.Time) {
	w := NewWindow(maxEvents, window)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	return w, &now
}

func TestAllow_DeniesFourthEventInWindow(t *testing.T) {
	w, _ := frozenWindow(3, 60*time.Second)
	defer w.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := w.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok, "event %d should pass", i+1)
	}

	ok, err := w.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "fourth event within the window must be denied")
}

func TestAllow_ResetsAfterWindowElapses(t *testing.T) {
	w, now := frozenWindow(3, 60*time.Second)
	defer w.Close()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		w.Allow(ctx, "alice")
	}

	*now = now.Add(61 * time.Second)

	ok, err := w.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok, "a new window should admit events again")
}

func TestAllow_IdentitiesAreIndependent(t *testing.T) {
	w, _ := frozenWindow(1, time.Minute)
	defer w.Close()
	ctx := context.Background()

	ok, _ := w.Allow(ctx, "alice")
	assert.True(t, ok)
	ok, _ = w.Allow(ctx, "alice")
	assert.False(t, ok)

	ok, _ = w.Allow(ctx, "bob")
	assert.True(t, ok, "bob is unaffected by alice's limit")
}

func TestAllow_ConcurrentCallersCannotOverspend(t *testing.T) {
	w := NewWindow(5, time.Minute)
	defer w.Close()
	ctx := context.Background()

	const callers = 40
	var wg sync.WaitGroup
	allowed := make(chan struct{}, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := w.Allow(ctx, "alice"); ok {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for range allowed {
		count++
	}
	assert.Equal(t, 5, count)
}

func TestSweep_DropsElapsedState(t *testing.T) {
	w, now := frozenWindow(3, time.Second)
	defer w.Close()

	w.Allow(context.Background(), "alice")
	*now = now.Add(2 * time.Second)
	w.sweep()

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.states)
}
