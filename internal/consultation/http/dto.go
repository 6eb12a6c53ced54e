package http

import (
	"time"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/consultation"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/request"
)

// ListConsultationsRequest defines query parameters for listing consultations.
type ListConsultationsRequest struct {
	request.ListParams
	Status string     `form:"status" binding:"omitempty,oneof=pending scheduled completed cancelled no_show"`
	From   *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To     *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type CreateConsultationRequest struct {
	LawyerID      string    `json:"lawyer_id" binding:"required,uuid"`
	ApplicationID *string   `json:"application_id" binding:"omitempty,uuid"`
	ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
	Duration      int       `json:"duration"`
	Notes         *string   `json:"notes"`
}

type UpdateConsultationRequest struct {
	Status      *string `json:"status" binding:"omitempty,oneof=pending scheduled completed cancelled no_show"`
	Notes       *string `json:"notes"`
	MeetingLink *string `json:"meeting_link"`
}

type ConsultationResponse struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"client_id"`
	LawyerID      string    `json:"lawyer_id"`
	ApplicationID *string   `json:"application_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Duration      int       `json:"duration"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	Notes         *string   `json:"notes"`
	MeetingLink   string    `json:"meeting_link"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewConsultationResponse(c *consultation.Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:            c.ID,
		ClientID:      c.ClientID,
		LawyerID:      c.LawyerID,
		ApplicationID: c.ApplicationID,
		ScheduledTime: c.ScheduledTime,
		Duration:      c.Duration,
		EndTime:       c.EndTime(),
		Status:        string(c.Status),
		Notes:         c.Notes,
		MeetingLink:   c.MeetingLink,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
