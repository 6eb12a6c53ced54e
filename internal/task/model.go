package task

import (
	"net/http"
	"time"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/apperror"
)

var (
	ErrNotFound      = apperror.New(http.StatusNotFound, "task not found")
	ErrAccessDenied  = apperror.New(http.StatusForbidden, "access denied")
	ErrInvalidStatus = apperror.New(http.StatusBadRequest, "invalid task status")
)

// Status tracks a task through the lawyer's worklist.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// IsValid returns true if the status is a recognized task status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Priority orders tasks within a worklist.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is a work item owned by a lawyer. Tasks are created directly by
// lawyers or automatically when a consultation completes.
type Task struct {
	ID            string
	LawyerID      string
	ApplicationID *string
	Title         string
	Description   *string
	Status        Status
	Priority      Priority
	DueDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Filter defines parameters for listing tasks.
type Filter struct {
	LawyerID string
	Status   string

	Page     int
	PageSize int
}
