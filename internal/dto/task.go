package dto

import (
	dom "github.com/AMYasserF/task-manager/internal/domain"
)

// createdAtLayout matches the second-resolution representation tasks are
// stored with, so responses round-trip byte-for-byte with the store.
const createdAtLayout = "2006-01-02 15:04:05"

// CreateTaskRequest is the JSON body for POST /tasks. Title presence and
// status validity are checked in the service so error messages stay exact.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

// UpdateTaskRequest is a partial update; nil fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type TaskResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UserID      int64   `json:"user_id"`
}

type PaginationResponse struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

type ListTasksResponse struct {
	Tasks      []TaskResponse     `json:"tasks"`
	Pagination PaginationResponse `json:"pagination"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// FromTask converts a domain task to its response shape.
func FromTask(t dom.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.UTC().Format(createdAtLayout),
		UserID:      t.OwnerID,
	}
}

// FromTasks converts a slice of domain tasks, preserving order.
func FromTasks(list []dom.Task) []TaskResponse {
	out := make([]TaskResponse, len(list))
	for i := range list {
		out[i] = FromTask(list[i])
	}
	return out
}
