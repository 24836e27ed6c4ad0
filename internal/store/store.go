// Package store provides SQLite persistence for feedkeeper.
//
// The store is a small key-value table. Each key holds one JSON document
// (the whole retained history, the summaries map, and so on), mirroring the
// extension storage the collector state was designed around.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// Keys used by feedkeeper.
const (
	KeyFeedHistory     = "feedHistory"
	KeySummaries       = "summaries"
	KeyLastSummaryDate = "lastSummaryDate"
	KeyCollectionState = "collectionState"
)

// memSeq names in-memory databases so separate Opens don't share state.
var memSeq atomic.Uint64

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a new Store with the given database path.
// Creates the table if it doesn't exist.
// Uses WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	memory := dbPath == ":memory:"
	if memory {
		// Shared cache so every pooled connection sees the same database.
		connStr = fmt.Sprintf("file:feedkeeper-%d?mode=memory&cache=shared", memSeq.Add(1))
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if !memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get returns the stored values for keys. Missing keys are absent from the
// result rather than an error.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := "SELECT key, value FROM kv WHERE key IN (?" + strings.Repeat(", ?", len(keys)-1) + ")"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get %v: %w", keys, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan kv: %w", err)
		}
		out[k] = json.RawMessage(v)
	}
	return out, rows.Err()
}

// Set writes all values in one transaction. A nil value deletes its key.
func (s *Store) Set(ctx context.Context, values map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for k, v := range values {
		if v == nil {
			if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", k); err != nil {
				return fmt.Errorf("delete %s: %w", k, err)
			}
			continue
		}
		if !json.Valid(v) {
			return fmt.Errorf("set %s: value is not valid JSON", k)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, k, string(v), now)
		if err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	values := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		values[k] = nil
	}
	return s.Set(ctx, values)
}

// GetJSON decodes the value at key into v. found is false, and v untouched,
// when the key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (found bool, err error) {
	got, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := got[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, map[string]json.RawMessage{key: data})
}

// UpdatedAt returns when key was last written. Zero time if absent.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t time.Time
	err := s.db.QueryRowContext(ctx, "SELECT updated_at FROM kv WHERE key = ?", key).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("updated_at %s: %w", key, err)
	}
	return t, nil
}
