package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/consultation"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/response"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
)

type Handler struct {
	service consultation.Service
}

func NewHandler(service consultation.Service) *Handler {
	return &Handler{service: service}
}

// Create books a new consultation. Only clients (applicants) request
// consultations; lawyers receive them.
func (h *Handler) Create(c *gin.Context) {
	var req CreateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	callerID := auth.GetUserID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	duration := req.Duration
	if duration == 0 {
		duration = 60
	}

	result, err := h.service.Create(c.Request.Context(), consultation.CreateRequest{
		ClientID:      callerID,
		LawyerID:      req.LawyerID,
		ApplicationID: req.ApplicationID,
		ScheduledTime: req.ScheduledTime,
		Duration:      duration,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewConsultationResponse(result))
}

// List returns the caller's consultations: clients see the ones they
// requested, lawyers the ones booked with them, admins everything.
func (h *Handler) List(c *gin.Context) {
	var req ListConsultationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	filter := consultation.Filter{
		Status:    req.Status,
		From:      req.From,
		To:        req.To,
		SortOrder: req.SortOrder,
		Page:      page,
		PageSize:  pageSize,
	}

	callerID := auth.GetUserID(c)
	switch auth.GetUserRole(c) {
	case string(user.RoleLawyer):
		filter.LawyerID = callerID
	case string(user.RoleAdmin):
		// Admins see all consultations, unscoped.
	default:
		filter.ClientID = callerID
	}

	consultations, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list consultations"})
		return
	}

	items := make([]ConsultationResponse, len(consultations))
	for i, item := range consultations {
		items[i] = NewConsultationResponse(item)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, page, pageSize, total))
}

// Get returns a single consultation for one of its participants.
func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	result, err := h.service.GetByID(c.Request.Context(), id, auth.GetUserID(c), auth.GetUserRole(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewConsultationResponse(result))
}

// Update transitions the consultation's status or patches its notes.
func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var req UpdateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, err := h.service.Update(c.Request.Context(), id, consultation.UpdateRequest{
		Status:      req.Status,
		Notes:       req.Notes,
		MeetingLink: req.MeetingLink,
	}, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewConsultationResponse(result))
}

// Delete cancels a consultation. Repeating the call yields 404: the first
// cancellation removed the row.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	err := h.service.Cancel(c.Request.Context(), id, auth.GetUserID(c))
	if err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "consultation not found"})
			return
		}
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
