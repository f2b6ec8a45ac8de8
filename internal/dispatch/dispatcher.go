// ABOUTME: Dispatcher: dedupe, rate limiting, session locking, and panic containment per event.
// ABOUTME: The engine mutates a session copy; mutations are saved only when handling succeeds.

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/studybuddy/gateway/internal/dedupe"
	"github.com/studybuddy/gateway/internal/message"
	"github.com/studybuddy/gateway/internal/ratelimit"
	"github.com/studybuddy/gateway/internal/session"
)

const rateLimitedText = `⏳ You're sending messages faster than I can study! Take a short break and try again in a bit. ☕`

const failureText = `😓 Something went wrong on my side handling that message. Please try again.`

// Handler is the conversation engine as the dispatcher consumes it.
type Handler interface {
	Handle(ctx context.Context, ev *message.Event, sess *session.Session) ([]message.Reply, error)
}

// Dispatcher runs the per-event pipeline around the engine: duplicate
// suppression, rate limiting, exclusive session access, and recovery
// from handler panics.
type Dispatcher struct {
	engine  Handler
	store   session.Store
	limiter ratelimit.Limiter
	seen    *dedupe.Cache
	logger  *slog.Logger
}

// New wires a dispatcher. limiter may be nil to disable rate limiting.
func New(engine Handler, store session.Store, limiter ratelimit.Limiter, seen *dedupe.Cache, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		engine:  engine,
		store:   store,
		limiter: limiter,
		seen:    seen,
		logger:  logger.With("component", "dispatch"),
	}
}

// Dispatch processes one inbound event end to end and returns the
// replies to send. A nil, nil return means the event was a duplicate
// and nothing should be sent.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *message.Event) ([]message.Reply, error) {
	if ev.Identity == "" {
		return nil, fmt.Errorf("event %s has no identity", ev.ID)
	}

	if d.seen != nil && ev.ID != "" && d.seen.Seen(ev.ID) {
		d.logger.Debug("dropping duplicate event", "event_id", ev.ID, "identity", ev.Identity)
		return nil, nil
	}

	if allowed := d.allow(ctx, ev); !allowed {
		return []message.Reply{message.Text(rateLimitedText)}, nil
	}

	release, err := d.store.Acquire(ctx, ev.Identity)
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	defer release()

	sess, err := d.store.Load(ctx, ev.Identity)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	replies, err := d.handle(ctx, ev, sess)
	if err != nil {
		// The stored session is untouched; the failed event only ever
		// saw a private copy.
		d.logger.Error("event handling failed", "event_id", ev.ID, "identity", ev.Identity, "error", err)
		return []message.Reply{message.Text(failureText)}, nil
	}

	if err := d.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return replies, nil
}

// allow asks the limiter and fails open: a broken limiter backend must
// not take the whole assistant down with it.
func (d *Dispatcher) allow(ctx context.Context, ev *message.Event) bool {
	if d.limiter == nil {
		return true
	}
	allowed, err := d.limiter.Allow(ctx, ev.Identity)
	if err != nil {
		d.logger.Warn("rate limiter unavailable, allowing event", "identity", ev.Identity, "error", err)
		return true
	}
	if !allowed {
		d.logger.Info("rate limited", "identity", ev.Identity, "event_id", ev.ID)
	}
	return allowed
}

// handle invokes the engine with panic containment. A panicking
// handler is reported as an error so the session copy is discarded.
func (d *Dispatcher) handle(ctx context.Context, ev *message.Event, sess *session.Session) (replies []message.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("engine panic", "event_id", ev.ID, "identity", ev.Identity, "panic", r, "stack", string(debug.Stack()))
			replies = nil
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return d.engine.Handle(ctx, ev, sess)
}
