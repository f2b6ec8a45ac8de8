// ABOUTME: TTL cache suppressing duplicate webhook deliveries by transport event ID.
// ABOUTME: Cloud messaging APIs may redeliver an event; Seen gates processing exactly once per TTL.

package dedupe

import (
	"sync"
	"time"
)

// Cache remembers recently processed event IDs for a bounded window.
// It answers a single question: has this delivery been handled already?
type Cache struct {
	mu         sync.Mutex
	handled    map[string]time.Time
	queue      []string // IDs in arrival order, oldest first
	ttl        time.Duration
	maxEntries int
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a dedupe cache. Entries expire after ttl; when more than
// maxEntries are tracked, the oldest are dropped first.
func New(ttl time.Duration, maxEntries int) *Cache {
	c := &Cache{
		handled:    make(map[string]time.Time),
		ttl:        ttl,
		maxEntries: maxEntries,
		done:       make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Seen atomically records the event ID and reports whether it had
// already been recorded within the TTL. A true result means the caller
// should drop the event as a duplicate delivery.
func (c *Cache) Seen(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.handled[eventID]; ok && time.Since(at) < c.ttl {
		return true
	}

	if _, ok := c.handled[eventID]; !ok {
		c.queue = append(c.queue, eventID)
	}
	c.handled[eventID] = time.Now()

	// Drop oldest entries when over capacity. Re-marked IDs may leave
	// stale queue slots behind; those are skipped here.
	for len(c.handled) > c.maxEntries && len(c.queue) > 0 {
		oldest := c.queue[0]
		c.queue = c.queue[1:]
		if _, ok := c.handled[oldest]; ok {
			delete(c.handled, oldest)
		}
	}

	return false
}

// Len reports the number of tracked IDs, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handled)
}

// sweepLoop periodically removes expired entries.
func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep drops every expired entry and compacts the arrival queue.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, at := range c.handled {
		if now.Sub(at) >= c.ttl {
			delete(c.handled, id)
		}
	}

	live := c.queue[:0]
	for _, id := range c.queue {
		if _, ok := c.handled[id]; ok {
			live = append(live, id)
		}
	}
	c.queue = live
}

// Close stops the background sweeper. Safe to call multiple times.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
