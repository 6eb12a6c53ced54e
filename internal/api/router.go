package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/consultation"
	consultationHttp "github.com/eldorm20/ImmigrationAI-app-sub001/internal/consultation/http"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/task"
	taskHttp "github.com/eldorm20/ImmigrationAI-app-sub001/internal/task/http"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
	userHttp "github.com/eldorm20/ImmigrationAI-app-sub001/internal/user/http"
)

// Config holds the dependencies the router needs.
type Config struct {
	IsProduction bool
	ProdOrigins  []string

	UserService         user.Service
	ConsultationService consultation.Service
	TaskService         task.Service
	JWTManager          *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logger writes request lines, Recovery turns panics into 500s.
	r.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && len(cfg.ProdOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.ProdOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8081"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	userHandler := userHttp.NewUserHandler(cfg.UserService, cfg.JWTManager)
	consultationHandler := consultationHttp.NewHandler(cfg.ConsultationService)
	taskHandler := taskHttp.NewHandler(cfg.TaskService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		consultationHttp.RegisterRoutes(v1, consultationHandler, authMiddleware)
		taskHttp.RegisterRoutes(v1, taskHandler, authMiddleware)
	}

	return r
}
