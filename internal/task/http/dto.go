package http

import (
	"time"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/request"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/task"
)

// ListTasksRequest defines query parameters for listing tasks.
type ListTasksRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=pending in_progress completed archived"`
}

// UpdateTaskRequest defines the payload for updating a task's status.
type UpdateTaskRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in_progress completed archived"`
}

type TaskResponse struct {
	ID            string     `json:"id"`
	LawyerID      string     `json:"lawyer_id"`
	ApplicationID *string    `json:"application_id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewTaskResponse(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:            t.ID,
		LawyerID:      t.LawyerID,
		ApplicationID: t.ApplicationID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		DueDate:       t.DueDate,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
