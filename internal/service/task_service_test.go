package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	dom "github.com/AMYasserF/task-manager/internal/domain"
	"github.com/AMYasserF/task-manager/internal/repo"
	"github.com/AMYasserF/task-manager/internal/store"
)

func newTaskService(t *testing.T) (*TaskService, repo.UserRepo) {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	return NewTaskService(repo.NewSQLiteTaskRepo(s), nil), repo.NewSQLiteUserRepo(s)
}

func seedOwner(t *testing.T, users repo.UserRepo, email string) int64 {
	t.Helper()
	u, err := users.Create(context.Background(), "user", email, "digest")
	require.NoError(t, err)
	return u.ID
}

func TestTaskCreateValidation(t *testing.T) {
	svc, users := newTaskService(t)
	ownerID := seedOwner(t, users, "a@x.com")
	ctx := context.Background()

	_, err := svc.Create(ctx, ownerID, "", nil, "")
	require.ErrorIs(t, err, ErrTitleRequired)

	_, err = svc.Create(ctx, ownerID, "   ", nil, "")
	require.ErrorIs(t, err, ErrTitleRequired)

	_, err = svc.Create(ctx, ownerID, "T1", nil, "archived")
	require.ErrorIs(t, err, ErrInvalidStatus)

	created, err := svc.Create(ctx, ownerID, "T1", nil, "")
	require.NoError(t, err)
	require.Equal(t, dom.StatusPending, created.Status)
}

func TestTaskListIsolatedPerOwner(t *testing.T) {
	svc, users := newTaskService(t)
	ctx := context.Background()
	ownerA := seedOwner(t, users, "a@x.com")
	ownerB := seedOwner(t, users, "b@x.com")

	taskA, err := svc.Create(ctx, ownerA, "A's task", nil, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, ownerB, "B's task", nil, "")
	require.NoError(t, err)

	resB, err := svc.List(ctx, ownerB, 1, 10)
	require.NoError(t, err)
	require.Len(t, resB.Tasks, 1)
	for _, task := range resB.Tasks {
		require.NotEqual(t, taskA.ID, task.ID, "A's task must never appear in B's list")
	}
}

func TestTaskUpdateOwnership(t *testing.T) {
	svc, users := newTaskService(t)
	ctx := context.Background()
	ownerA := seedOwner(t, users, "a@x.com")
	ownerB := seedOwner(t, users, "b@x.com")

	taskA, err := svc.Create(ctx, ownerA, "A's task", nil, "")
	require.NoError(t, err)

	done := dom.StatusDone
	_, err = svc.Update(ctx, ownerB, taskA.ID, repo.TaskPatch{Status: &done})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, ownerA, 999, repo.TaskPatch{Status: &done})
	require.ErrorIs(t, err, ErrNotFound)

	updated, err := svc.Update(ctx, ownerA, taskA.ID, repo.TaskPatch{Status: &done})
	require.NoError(t, err)
	require.Equal(t, dom.StatusDone, updated.Status)
}

func TestTaskUpdateEmptyPatchReturnsUnchanged(t *testing.T) {
	svc, users := newTaskService(t)
	ctx := context.Background()
	ownerID := seedOwner(t, users, "a@x.com")

	before, err := svc.Create(ctx, ownerID, "T1", nil, "")
	require.NoError(t, err)

	after, err := svc.Update(ctx, ownerID, before.ID, repo.TaskPatch{})
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestTaskUpdateRejectsBadPatch(t *testing.T) {
	svc, users := newTaskService(t)
	ctx := context.Background()
	ownerID := seedOwner(t, users, "a@x.com")

	created, err := svc.Create(ctx, ownerID, "T1", nil, "")
	require.NoError(t, err)

	bad := dom.Status("archived")
	_, err = svc.Update(ctx, ownerID, created.ID, repo.TaskPatch{Status: &bad})
	require.ErrorIs(t, err, ErrInvalidStatus)

	empty := "  "
	_, err = svc.Update(ctx, ownerID, created.ID, repo.TaskPatch{Title: &empty})
	require.ErrorIs(t, err, ErrTitleRequired)
}

func TestTaskDeleteOwnership(t *testing.T) {
	svc, users := newTaskService(t)
	ctx := context.Background()
	ownerA := seedOwner(t, users, "a@x.com")
	ownerB := seedOwner(t, users, "b@x.com")

	taskA, err := svc.Create(ctx, ownerA, "A's task", nil, "")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, ownerB, taskA.ID), ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, ownerA, 999), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, ownerA, taskA.ID))
	require.ErrorIs(t, svc.Delete(ctx, ownerA, taskA.ID), ErrNotFound)
}

func TestTaskListPagination(t *testing.T) {
	svc, users := newTaskService(t)
	ctx := context.Background()
	ownerID := seedOwner(t, users, "a@x.com")

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, ownerID, fmt.Sprintf("task %d", i), nil, "")
		require.NoError(t, err)
	}

	page2, err := svc.List(ctx, ownerID, 2, 10)
	require.NoError(t, err)
	require.Len(t, page2.Tasks, 10)
	require.Equal(t, 25, page2.Pagination.Total)
	require.Equal(t, 3, page2.Pagination.TotalPages)
	require.True(t, page2.Pagination.HasMore)

	page3, err := svc.List(ctx, ownerID, 3, 10)
	require.NoError(t, err)
	require.Len(t, page3.Tasks, 5)
	require.False(t, page3.Pagination.HasMore)

	// Out-of-range values fall back to defaults.
	fallback, err := svc.List(ctx, ownerID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, fallback.Pagination.Page)
	require.Equal(t, 10, fallback.Pagination.Limit)
}
