// Package store persists each host's latest device tree and the history of
// reconciliation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/beevans/integrated-manager-for-lustre/internal/logger"
)

// DefaultPath is the default database location
const DefaultPath = "/var/lib/iml-device/devices.db"

// ErrNotFound is returned when a host has no stored tree.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database connection
type Store struct {
	conn *sql.DB
	path string
	log  logger.Logger
}

type Option func(*Store)

func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens or creates the SQLite database at the given path
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent agent pushes.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{conn: conn, path: path, log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Ping checks the connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var version int
	err = s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	migrations := []string{
		migrationV1,
		migrationV2,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// migrationV1 creates the device tree tables
const migrationV1 = `
-- Latest device tree per host, encoded as JSON
CREATE TABLE IF NOT EXISTS host_devices (
    fqdn TEXT PRIMARY KEY,
    devices TEXT NOT NULL,
    nodes INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Per-host history: uploads, reconciliation changes, failures
CREATE TABLE IF NOT EXISTS host_events (
    id INTEGER PRIMARY KEY,
    fqdn TEXT NOT NULL,
    event_type TEXT NOT NULL,
    details TEXT,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_host ON host_events(fqdn);
CREATE INDEX IF NOT EXISTS idx_events_time ON host_events(timestamp);
`

// migrationV2 adds reconciliation run history
const migrationV2 = `
CREATE TABLE IF NOT EXISTS reconcile_runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    hosts INTEGER NOT NULL DEFAULT 0,
    donors INTEGER NOT NULL DEFAULT 0,
    changed INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    details TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON reconcile_runs(started_at);
`
