package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dom "github.com/AMYasserF/task-manager/internal/domain"
	"github.com/AMYasserF/task-manager/internal/store"
)

// timeLayout is the second-resolution format tasks are stored with,
// compatible with SQLite's datetime('now').
const timeLayout = "2006-01-02 15:04:05"

// TaskPatch is a partial update restricted to the mutable task fields.
// Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *dom.Status
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// TaskRepo provides task persistence. Write operations flush the store to
// its durable file before returning; a nil error means the mutation survived
// a process restart.
type TaskRepo interface {
	Create(ctx context.Context, t dom.Task) (*dom.Task, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]dom.Task, error)
	CountByOwner(ctx context.Context, ownerID int64) (int, error)
	GetByID(ctx context.Context, id int64) (*dom.Task, error)
	Update(ctx context.Context, id int64, patch TaskPatch) (*dom.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// SQLiteTaskRepo implements TaskRepo on the store handle. It never caches
// rows across calls; every operation re-reads the live instance.
type SQLiteTaskRepo struct {
	store *store.Store
}

func NewSQLiteTaskRepo(s *store.Store) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{store: s}
}

// Create inserts a new task and returns the canonical stored row. The
// identifier is assigned by the engine's auto-increment primary key and read
// back after the insert. Status defaults to pending, created_at is stamped at
// call time with second resolution.
func (r *SQLiteTaskRepo) Create(ctx context.Context, t dom.Task) (*dom.Task, error) {
	status := t.Status
	if status == "" {
		status = dom.StatusPending
	}
	createdAt := time.Now().UTC().Truncate(time.Second)

	res, err := r.store.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.Description, string(status), t.OwnerID, createdAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := r.store.Persist(ctx); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return r.GetByID(ctx, id)
}

// ListByOwner returns the owner's tasks ordered most recent first; ties in
// created_at keep insertion order. Always returns a non-nil slice.
func (r *SQLiteTaskRepo) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]dom.Task, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT id, title, description, status, created_at, user_id
		 FROM tasks WHERE user_id = ?
		 ORDER BY created_at DESC, id ASC
		 LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]dom.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CountByOwner returns the total number of tasks the owner has.
func (r *SQLiteTaskRepo) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := r.store.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ?`, ownerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// GetByID returns the task, or (nil, nil) when absent.
func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id int64) (*dom.Task, error) {
	row := r.store.QueryRowContext(ctx,
		`SELECT id, title, description, status, created_at, user_id FROM tasks WHERE id = ?`, id,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// Update applies the patch and returns the canonical row. An empty patch is a
// no-op that still returns the current row.
func (r *SQLiteTaskRepo) Update(ctx context.Context, id int64, patch TaskPatch) (*dom.Task, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	args = append(args, id)

	query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := r.store.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := r.store.Persist(ctx); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the task and reports whether a row was actually removed.
func (r *SQLiteTaskRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	if err := r.store.Persist(ctx); err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return n > 0, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*dom.Task, error) {
	var (
		t         dom.Task
		desc      sql.NullString
		status    string
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.Title, &desc, &status, &createdAt, &t.OwnerID); err != nil {
		return nil, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	t.Status = dom.Status(status)
	ts, err := time.ParseInLocation(timeLayout, createdAt, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	t.CreatedAt = ts
	return &t, nil
}
