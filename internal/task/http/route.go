package http

import (
	"github.com/gin-gonic/gin"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/tasks")

	// The worklist belongs to lawyers; other roles have nothing here.
	group.Use(authMiddleware, auth.RequireRole(string(user.RoleLawyer)))
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
	}
}
