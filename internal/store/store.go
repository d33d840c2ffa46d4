// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store provides the durable record store for the control
// plane, backed by SQLite. It is the sole serialization point: all
// coordination between concurrent mutations happens through its
// transactions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/logprobe/internal/config"
	"github.com/tombee/logprobe/pkg/errors"
)

// Store provides SQLite-backed storage for the control plane entities.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the store at the configured path.
func Open(cfg config.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// SQLite connection string with WAL mode for better concurrency
	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		connStr += "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must be
	// a single connection. With WAL mode, a file-backed database can
	// handle multiple readers concurrently.
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		maxConns := cfg.MaxOpenConns
		if maxConns == 0 {
			maxConns = 5
		}
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	// Enable foreign keys (disabled by default in SQLite)
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trace_sets (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS trace_states (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			trace_set_id TEXT NOT NULL REFERENCES trace_sets(id),
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS directives (
			id TEXT PRIMARY KEY,
			trace_set_id TEXT NOT NULL REFERENCES trace_sets(id),
			module TEXT NOT NULL,
			function TEXT NOT NULL,
			statement TEXT NOT NULL,
			active INTEGER NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			deleted_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_directives_trace_set ON directives(trace_set_id)`,
		`CREATE INDEX IF NOT EXISTS idx_directives_module ON directives(module)`,

		`CREATE TABLE IF NOT EXISTS probes (
			id TEXT PRIMARY KEY,
			trace_state_id TEXT NOT NULL REFERENCES trace_states(id),
			key_hash TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			last_heartbeat INTEGER NOT NULL,
			closed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_probes_heartbeat ON probes(last_heartbeat)`,
		`CREATE INDEX IF NOT EXISTS idx_probes_trace_state ON probes(trace_state_id)`,

		`CREATE TABLE IF NOT EXISTS change_entries (
			id TEXT PRIMARY KEY,
			trace_state_id TEXT NOT NULL REFERENCES trace_states(id),
			type TEXT NOT NULL,
			directive_id TEXT REFERENCES directives(id),
			probe_id TEXT REFERENCES probes(id),
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_trace_state ON change_entries(trace_state_id)`,

		`CREATE TABLE IF NOT EXISTS delivery_records (
			id TEXT PRIMARY KEY,
			change_entry_id TEXT NOT NULL REFERENCES change_entries(id),
			probe_id TEXT NOT NULL REFERENCES probes(id),
			state TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(change_entry_id, probe_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_probe ON delivery_records(probe_id, state)`,

		`CREATE TABLE IF NOT EXISTS failure_records (
			id TEXT PRIMARY KEY,
			probe_id TEXT NOT NULL REFERENCES probes(id),
			message TEXT NOT NULL,
			directive_id TEXT REFERENCES directives(id),
			directive_version INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_directive ON failure_records(directive_id, directive_version)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// storeErr wraps a driver error as an internal StoreError.
func storeErr(op string, err error) error {
	return &errors.StoreError{Op: op, Cause: err}
}

// Timestamps are persisted as integer unix nanoseconds. The driver
// round-trips them without timezone surprises.

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func toNullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
