// Package outbox implements the durable local queue of parcel-status
// mutations awaiting confirmation by the remote authority.
//
// The store is an embedded SQLite database (WAL mode) keyed by the
// composite sync key, so it survives app restarts and crashes: a
// successful Put is visible after abrupt termination, and the records
// are the sole source of truth for "work not yet confirmed remotely".
//
// Keyed-by-sync-key means the queue holds at most one mutation per
// parcel per activity cycle; re-marking a parcel overwrites the queued
// record in place (last-write-wins locally) instead of accumulating
// contradictory updates.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ocastro/fieldsync/internal/schema"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps the SQLite connection holding the outbox table.
type Store struct {
	conn *sql.DB
	path string
}

// OpenStore opens (creating if needed) the outbox database at path and
// initializes its schema. The caller MUST call Close when done.
//
// Example:
//
//	store, err := outbox.OpenStore(".fieldsync/outbox.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL keeps a reader (badge count) live during writes and makes a
	// committed Put durable across a crash.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA synchronous=FULL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if err := s.initSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Close checkpoints the WAL and closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// initSchema creates the outbox table if it doesn't exist. Idempotent.
func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS outbox (
		sync_key    TEXT PRIMARY KEY,
		activity_id TEXT NOT NULL,
		cycle       TEXT NOT NULL,
		parcel_id   INTEGER NOT NULL,
		status      TEXT NOT NULL,
		enqueued_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_activity
	    ON outbox(activity_id, cycle);
	`

	if _, err := s.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Put inserts or replaces the mutation stored under its sync key.
func (s *Store) Put(ctx context.Context, m *schema.Mutation) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid mutation: %w", err)
	}

	query := `
	INSERT INTO outbox (sync_key, activity_id, cycle, parcel_id, status, enqueued_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(sync_key) DO UPDATE SET
		status = excluded.status,
		enqueued_at = excluded.enqueued_at
	`

	_, err := s.conn.ExecContext(ctx, query,
		m.SyncKey(),
		m.ActivityID,
		m.Cycle,
		m.ParcelID,
		string(m.Status),
		m.EnqueuedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put mutation %s: %w", m.SyncKey(), err)
	}

	return nil
}

// GetAll returns every stored mutation. Order is not significant; the
// remote treats a batch as a set of independent per-key upserts.
func (s *Store) GetAll(ctx context.Context) ([]*schema.Mutation, error) {
	query := `
	SELECT activity_id, cycle, parcel_id, status, enqueued_at
	FROM outbox
	ORDER BY enqueued_at ASC
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var mutations []*schema.Mutation
	for rows.Next() {
		var m schema.Mutation
		var status, enqueuedAt string

		if err := rows.Scan(&m.ActivityID, &m.Cycle, &m.ParcelID, &status, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}

		m.Status = schema.Status(status)
		if t, err := time.Parse(time.RFC3339, enqueuedAt); err == nil {
			m.EnqueuedAt = t
		}

		mutations = append(mutations, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox: %w", err)
	}

	return mutations, nil
}

// Count returns the number of stored mutations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM outbox").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox: %w", err)
	}
	return count, nil
}

// DeleteKeys removes exactly the given sync keys in one transaction.
//
// The sync engine calls this with the key set it read and the remote
// confirmed, never a blind clear: a mutation enqueued while a batch was
// in flight keeps its record and rides the next attempt.
func (s *Store) DeleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	query := `DELETE FROM outbox WHERE sync_key IN (` + placeholders + `)`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete confirmed keys: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

// Clear removes all entries atomically. Used only for the explicit
// user-confirmed discard action, never by the sync engine.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM outbox"); err != nil {
		return fmt.Errorf("failed to clear outbox: %w", err)
	}
	return nil
}
