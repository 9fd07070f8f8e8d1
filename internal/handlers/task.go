package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AMYasserF/task-manager/internal/auth"
	dom "github.com/AMYasserF/task-manager/internal/domain"
	"github.com/AMYasserF/task-manager/internal/dto"
	"github.com/AMYasserF/task-manager/internal/repo"
	"github.com/AMYasserF/task-manager/internal/service"
)

// TaskHandler handles the task CRUD surface. Every route is behind
// auth.RequireAuth, so the caller's id is always present in context.
type TaskHandler struct {
	svc *service.TaskService
}

// NewTaskHandler returns a new TaskHandler.
func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Create makes a new task owned by the caller.
func (h *TaskHandler) Create(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	t, err := h.svc.Create(c.Request.Context(), userID, req.Title, req.Description, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromTask(*t))
}

// List returns the caller's tasks, paginated via ?page and ?limit.
func (h *TaskHandler) List(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	res, err := h.svc.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListTasksResponse{
		Tasks: dto.FromTasks(res.Tasks),
		Pagination: dto.PaginationResponse{
			Page:       res.Pagination.Page,
			Limit:      res.Pagination.Limit,
			Total:      res.Pagination.Total,
			TotalPages: res.Pagination.TotalPages,
			HasMore:    res.Pagination.HasMore,
		},
	})
}

// Update applies a partial update to a task the caller owns.
func (h *TaskHandler) Update(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	patch := repo.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		st := dom.Status(*req.Status)
		patch.Status = &st
	}
	t, err := h.svc.Update(c.Request.Context(), userID, id, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTask(*t))
}

// Delete removes a task the caller owns.
func (h *TaskHandler) Delete(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task deleted successfully"})
}

// writeError maps domain errors to statuses. Store-level faults never reach
// the caller as anything but a generic 500 body.
func (h *TaskHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTitleRequired):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Title is required"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status value"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Access denied"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return 0, false
	}
	return id, true
}
