// Package session owns all per-user mutable state for the gateway.
//
// # Model
//
// A Session is created lazily on the first inbound event for an
// identity and holds conversation history, the active mode with its
// mode-specific payload (quiz or flashcards, never both), language
// preference, and the study streak.
//
// # Store
//
// The Store contract pairs load/save with a per-identity exclusive
// lock so that handling one inbound event is a serialized
// read-modify-write:
//
//	release, _ := store.Acquire(ctx, identity)
//	defer release()
//	sess, _ := store.Load(ctx, identity)
//	// ... engine mutates a copy ...
//	_ = store.Save(ctx, sess)
//
// Two backends are provided: MemoryStore (map) and SQLiteStore
// (modernc.org/sqlite, one JSON document per identity, optional idle
// retention eviction).
package session
