package http

import (
	"github.com/gin-gonic/gin"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/consultations")

	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		// Consultations are requested by clients; lawyers receive them.
		group.POST("", auth.RequireRole(string(user.RoleApplicant)), h.Create)
		group.PATCH("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}
