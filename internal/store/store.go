// Package store owns the live in-memory SQLite instance and its durable file
// mirror. Durability is achieved only by deliberate full-image flushes: every
// successful write statement must be followed by Persist before the write is
// acknowledged. There is no write-ahead log and the whole file is rewritten on
// each flush, which bounds this design to low-volume, single-process workloads.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrInit wraps failures to construct the underlying engine. Fatal at startup.
var ErrInit = errors.New("store init failed")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'in_progress', 'done')),
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	user_id INTEGER NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

// Store is the single owner of durable state. Statement execution is
// serialized through one connection (the in-memory database lives on it);
// the mutex additionally serializes open/flush sequences.
type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// New returns an unopened store bound to the durable file at path.
func New(path string) *Store {
	if path == "" {
		path = "tasks.db"
	}
	return &Store{path: path}
}

// Path returns the location of the durable file.
func (s *Store) Path() string { return s.path }

// Open deserializes the durable file into a live in-memory database, or
// constructs an empty one and defines the schema if no file exists yet.
// Idempotent: a second call returns without re-reading the file.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create data dir: %v", ErrInit, err)
		}
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInit, err)
	}
	// The whole database lives on a single connection; never let the pool
	// hand out a second one or drop the one holding the data.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: %v", ErrInit, err)
	}

	if image, err := os.ReadFile(s.path); err == nil && len(image) > 0 {
		if err := rawConn(ctx, db, func(c *sqlite3.SQLiteConn) error {
			return c.Deserialize(image, "")
		}); err != nil {
			_ = db.Close()
			return fmt.Errorf("%w: load %s: %v", ErrInit, s.path, err)
		}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = db.Close()
		return fmt.Errorf("%w: read %s: %v", ErrInit, s.path, err)
	}

	// Connection-level setting, not part of the serialized image.
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: %v", ErrInit, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: create schema: %v", ErrInit, err)
	}

	s.db = db
	return s.persistLocked(ctx)
}

// ExecContext runs one parameterized write or DDL statement against the live
// instance. Callers must classify constraint violations themselves and follow
// every successful write with Persist.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, query, args...)
}

// QueryContext runs one parameterized read statement and returns its rows.
func (s *Store) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, query, args...)
}

// QueryRowContext runs one parameterized read statement expected to return at
// most one row. If the store has not been opened the returned row reports the
// error from Scan rather than being nil.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	db, err := s.handle()
	if err != nil {
		return errRow(ctx, query, args...)
	}
	return db.QueryRowContext(ctx, query, args...)
}

// Persist serializes the full byte image of the live instance and atomically
// replaces the durable file. Must be called synchronously after every
// successful write statement, before the write is acknowledged.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.db == nil {
		return errors.New("store is not open")
	}
	var image []byte
	if err := rawConn(ctx, s.db, func(c *sqlite3.SQLiteConn) error {
		b, err := c.Serialize("")
		if err != nil {
			return err
		}
		image = append([]byte(nil), b...)
		return nil
	}); err != nil {
		return fmt.Errorf("serialize store: %w", err)
	}
	return writeFileAtomic(s.path, image)
}

// Close releases the live instance. The durable file keeps the last flushed
// image; pending unflushed writes are lost, which is why Persist is mandatory
// after each mutation.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("store is not open")
	}
	return s.db, nil
}

var (
	closedOnce sync.Once
	closedDB   *sql.DB
)

// errRow fabricates a *sql.Row whose Scan fails. sql.Row cannot carry an
// arbitrary error, so the query is issued against a closed handle.
func errRow(ctx context.Context, query string, args ...any) *sql.Row {
	closedOnce.Do(func() {
		db, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			panic(err)
		}
		_ = db.Close()
		closedDB = db
	})
	return closedDB.QueryRowContext(ctx, query, args...)
}

// rawConn runs fn against the raw driver connection backing db.
func rawConn(ctx context.Context, db *sql.DB, fn func(*sqlite3.SQLiteConn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return fn(c)
	})
}

// writeFileAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path, so the durable file is never observed half-written.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist store: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("persist store: %w", err)
	}
	return nil
}
