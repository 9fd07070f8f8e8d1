package domain

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is the domain entity for a user-owned task.
// CreatedAt is stamped once at creation, second resolution, UTC.
type Task struct {
	ID          int64
	Title       string
	Description *string
	Status      Status
	CreatedAt   time.Time
	OwnerID     int64
}
