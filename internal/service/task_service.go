package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/AMYasserF/task-manager/internal/cache"
	dom "github.com/AMYasserF/task-manager/internal/domain"
	"github.com/AMYasserF/task-manager/internal/repo"
)

var (
	ErrNotFound      = errors.New("task not found")
	ErrForbidden     = errors.New("access denied")
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidStatus = errors.New("invalid status value")
)

const defaultPageLimit = 10

// Pagination describes one page of a task list.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasMore    bool
}

// ListResult bundles a page of tasks with its pagination info.
type ListResult struct {
	Tasks      []dom.Task
	Pagination Pagination
}

// TaskService owns task business rules and the ownership checks applied
// before every single-resource mutation.
type TaskService struct {
	tasks repo.TaskRepo
	cache *cache.TaskCache
	sf    singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(r repo.TaskRepo, c *cache.TaskCache) *TaskService {
	return &TaskService{tasks: r, cache: c}
}

// Create validates input and creates a task owned by ownerID. Status defaults
// to pending when empty.
func (s *TaskService) Create(ctx context.Context, ownerID int64, title string, description *string, status string) (*dom.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	st := dom.Status(status)
	if status != "" && !st.Valid() {
		return nil, ErrInvalidStatus
	}

	t, err := s.tasks.Create(ctx, dom.Task{
		Title:       title,
		Description: description,
		Status:      st,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, ownerID)
	return t, nil
}

// List returns the requested page of the owner's tasks, most recent first.
// The query is scoped by the caller's own id, so no further ownership check
// is needed.
func (s *TaskService) List(ctx context.Context, ownerID int64, page, limit int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}

	if s.cache != nil {
		key := fmt.Sprintf("list:%d:%d:%d", ownerID, page, limit)
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if p, err := s.cache.GetPage(ctx, ownerID, page, limit); err == nil && p != nil {
				return s.paginate(p.Tasks, p.Total, page, limit), nil
			}
			res, err := s.listFromRepo(ctx, ownerID, page, limit)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetPage(ctx, ownerID, page, limit, cache.Page{Tasks: res.Tasks, Total: res.Pagination.Total})
			return res, nil
		})
		if err != nil {
			return nil, err
		}
		return v.(*ListResult), nil
	}
	return s.listFromRepo(ctx, ownerID, page, limit)
}

// Update authorizes the caller as the task's owner, validates the patch and
// applies it. An empty patch returns the current row unchanged.
func (s *TaskService) Update(ctx context.Context, callerID, id int64, patch repo.TaskPatch) (*dom.Task, error) {
	if _, err := s.authorize(ctx, callerID, id); err != nil {
		return nil, err
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return nil, ErrTitleRequired
		}
		patch.Title = &trimmed
	}

	t, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, callerID)
	return t, nil
}

// Delete authorizes the caller as the task's owner and removes the task.
// A row that vanished between the check and the delete is still a success.
func (s *TaskService) Delete(ctx context.Context, callerID, id int64) error {
	if _, err := s.authorize(ctx, callerID, id); err != nil {
		return err
	}
	if _, err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx, callerID)
	return nil
}

// authorize loads the task and confirms the caller owns it. Absent task is
// ErrNotFound; present but foreign is ErrForbidden.
func (s *TaskService) authorize(ctx context.Context, callerID, id int64) (*dom.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	if t.OwnerID != callerID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *TaskService) listFromRepo(ctx context.Context, ownerID int64, page, limit int) (*ListResult, error) {
	offset := (page - 1) * limit
	tasks, err := s.tasks.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.tasks.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	res := s.paginate(tasks, total, page, limit)
	return res, nil
}

func (s *TaskService) paginate(tasks []dom.Task, total, page, limit int) *ListResult {
	totalPages := (total + limit - 1) / limit
	return &ListResult{
		Tasks: tasks,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasMore:    (page-1)*limit+limit < total,
		},
	}
}

func (s *TaskService) invalidateCache(ctx context.Context, ownerID int64) {
	if s.cache != nil {
		_ = s.cache.InvalidateOwner(ctx, ownerID)
	}
}
