// ABOUTME: SQLite implementation of the session Store using modernc.org/sqlite
// ABOUTME: Sessions persist as JSON documents keyed by identity; schema is created automatically

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions in a SQLite database. Per-identity
// locks are held in-process, so the store assumes a single gateway
// instance owns the database file.
type SQLiteStore struct {
	db     *sql.DB
	locks  *identityLocks
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLite-backed session store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "session-store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		locks:  newIdentityLocks(),
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		identity    TEXT PRIMARY KEY,
		data        TEXT NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Acquire implements Store.
func (s *SQLiteStore) Acquire(_ context.Context, identity string) (func(), error) {
	return s.locks.acquire(identity), nil
}

// Load implements Store. Unknown identities yield a fresh default
// session rather than an error, so retention eviction is transparent.
func (s *SQLiteStore) Load(ctx context.Context, identity string) (*Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM sessions WHERE identity = ?", identity,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return New(identity), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		// A row we cannot decode is unrecoverable; start the identity
		// over rather than failing every subsequent event.
		s.logger.Error("dropping undecodable session row",
			"identity", identity,
			"error", err)
		return New(identity), nil
	}
	return &sess, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (identity, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, sess.Identity, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// DeleteIdle removes sessions not seen within the retention window.
// Returns the number of evicted sessions.
func (s *SQLiteStore) DeleteIdle(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting idle sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("evicted idle sessions", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
