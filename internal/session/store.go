// ABOUTME: Store contract for session persistence plus the in-memory implementation.
// ABOUTME: Acquire serializes all handling per identity; distinct identities never contend.

package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by backend lookups when an identity has no
// stored session. Load never surfaces it to callers: a missing session
// becomes a fresh default session.
var ErrNotFound = errors.New("session not found")

// Store owns all per-identity session state.
//
// The read-modify-write of one inbound event must be atomic with
// respect to other events for the same identity: callers hold the
// identity's lock from Acquire across Load, engine handling, and Save.
type Store interface {
	// Acquire blocks until the identity's exclusive lock is held and
	// returns the release function. Distinct identities proceed fully
	// in parallel. Release must be called on every exit path.
	Acquire(ctx context.Context, identity string) (release func(), err error)

	// Load returns the stored session, or a fresh default session when
	// the identity is unknown (or was evicted by a retention policy).
	Load(ctx context.Context, identity string) (*Session, error)

	// Save atomically replaces the stored session.
	Save(ctx context.Context, sess *Session) error

	// Close releases backend resources.
	Close() error
}

// identityLocks is a keyed mutex set. Lock entries are created on first
// use and kept for the store's lifetime; one mutex per identity is
// cheap compared to a session record.
type identityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the identity's mutex is held and returns the
// unlock function.
func (l *identityLocks) acquire(identity string) func() {
	l.mu.Lock()
	m, ok := l.locks[identity]
	if !ok {
		m = &sync.Mutex{}
		l.locks[identity] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// MemoryStore keeps sessions in a map. Suitable for a single-process
// deployment and for tests; the SQLite store adds persistence.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    *identityLocks
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		locks:    newIdentityLocks(),
	}
}

// Acquire implements Store.
func (s *MemoryStore) Acquire(_ context.Context, identity string) (func(), error) {
	return s.locks.acquire(identity), nil
}

// Load implements Store. The returned session is a copy; mutations are
// invisible until Save.
func (s *MemoryStore) Load(_ context.Context, identity string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[identity]
	s.mu.RUnlock()

	if !ok {
		return New(identity), nil
	}
	return sess.Clone(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Identity] = sess.Clone()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
