package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/response"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/task"
)

type Handler struct {
	service task.Service
}

func NewHandler(service task.Service) *Handler {
	return &Handler{service: service}
}

// List returns the authenticated lawyer's tasks.
func (h *Handler) List(c *gin.Context) {
	var req ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
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

	filter := task.Filter{
		LawyerID: auth.GetUserID(c),
		Status:   req.Status,
		Page:     page,
		PageSize: pageSize,
	}

	tasks, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}

	items := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		items[i] = NewTaskResponse(t)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, page, pageSize, total))
}

// Get returns a single task owned by the caller.
func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	t, err := h.service.GetByID(c.Request.Context(), id, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewTaskResponse(t))
}

// Update changes the status of a task owned by the caller.
func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	t, err := h.service.UpdateStatus(c.Request.Context(), id, task.Status(req.Status), auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewTaskResponse(t))
}
