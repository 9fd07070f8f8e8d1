package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AMYasserF/task-manager/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *store.Store, email string) int64 {
	t.Helper()
	u, err := NewSQLiteUserRepo(s).Create(context.Background(), "user", email, "digest")
	require.NoError(t, err)
	return u.ID
}

// seedTaskAt inserts a task with a controlled created_at so ordering tests
// are deterministic.
func seedTaskAt(t *testing.T, s *store.Store, ownerID int64, title, createdAt string) int64 {
	t.Helper()
	res, err := s.ExecContext(context.Background(),
		`INSERT INTO tasks (title, status, user_id, created_at) VALUES (?, 'pending', ?, ?)`,
		title, ownerID, createdAt)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	require.NoError(t, s.Persist(context.Background()))
	return id
}
