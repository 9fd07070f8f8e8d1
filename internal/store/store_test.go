package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesSchemaAndDurableFile(t *testing.T) {
	s := newTestStore(t)

	_, err := os.Stat(s.Path())
	require.NoError(t, err, "durable file should exist after open")

	_, err = s.ExecContext(context.Background(),
		`INSERT INTO users (name, email, password) VALUES (?, ?, ?)`, "A", "a@x.com", "digest")
	require.NoError(t, err)

	var n int
	require.NoError(t, s.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM tasks`).Scan(&n))
	require.Equal(t, 0, n)
}

func TestOpenIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ExecContext(ctx, `INSERT INTO users (name, email, password) VALUES (?, ?, ?)`, "A", "a@x.com", "d")
	require.NoError(t, err)

	// Second open must not re-read the file and wipe the live instance.
	require.NoError(t, s.Open(ctx))

	var n int
	require.NoError(t, s.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestPersistReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	s := New(path)
	require.NoError(t, s.Open(ctx))
	_, err := s.ExecContext(ctx, `INSERT INTO users (name, email, password) VALUES (?, ?, ?)`, "A", "a@x.com", "d")
	require.NoError(t, err)
	_, err = s.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		"T1", nil, "pending", 1, "2026-08-30 10:00:00")
	require.NoError(t, err)
	require.NoError(t, s.Persist(ctx))
	require.NoError(t, s.Close())

	reloaded := New(path)
	require.NoError(t, reloaded.Open(ctx))
	t.Cleanup(func() { _ = reloaded.Close() })

	var (
		title, status, createdAt string
		desc                     *string
		userID                   int64
	)
	err = reloaded.QueryRowContext(ctx,
		`SELECT title, description, status, created_at, user_id FROM tasks WHERE id = 1`,
	).Scan(&title, &desc, &status, &createdAt, &userID)
	require.NoError(t, err)
	require.Equal(t, "T1", title)
	require.Nil(t, desc)
	require.Equal(t, "pending", status)
	require.Equal(t, "2026-08-30 10:00:00", createdAt)
	require.Equal(t, int64(1), userID)
}

func TestUnflushedWritesAreLostOnRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	s := New(path)
	require.NoError(t, s.Open(ctx))
	_, err := s.ExecContext(ctx, `INSERT INTO users (name, email, password) VALUES (?, ?, ?)`, "A", "a@x.com", "d")
	require.NoError(t, err)
	// No Persist.
	require.NoError(t, s.Close())

	reloaded := New(path)
	require.NoError(t, reloaded.Open(ctx))
	t.Cleanup(func() { _ = reloaded.Close() })

	var n int
	require.NoError(t, reloaded.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	require.Equal(t, 0, n, "mutation without a flush must not survive a restart")
}

func TestOpenFailsWhenDataDirUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := New(filepath.Join(blocker, "sub", "tasks.db"))
	err := s.Open(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInit))
}

func TestQueryRowOnUnopenedStoreScansToError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "tasks.db"))

	var n int
	err := s.QueryRowContext(context.Background(), `SELECT 1`).Scan(&n)
	require.Error(t, err)
}

func TestExecFailsOnClosedStore(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Close())

	_, err := s.ExecContext(context.Background(), `SELECT 1`)
	require.Error(t, err)
}
