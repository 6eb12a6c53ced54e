package app

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/api"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/consultation"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/notification"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/task"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction       bool
	ProdOrigins        string
	DBPool             *pgxpool.Pool
	JWTSecret          string
	JWTTTL             time.Duration
	BcryptCost         int
	NotifyPollInterval time.Duration
	Logger             *zap.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Dispatcher *notification.Dispatcher
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher, cfg.Logger)

	// Notification Module
	notifRepo := notification.NewPgxRepository(cfg.DBPool)
	notifService := notification.NewService(notifRepo)
	sender := &notification.LogSender{Logger: cfg.Logger}
	dispatcher := notification.NewDispatcher(notifRepo, sender, cfg.Logger, cfg.NotifyPollInterval)

	// Task Module
	taskRepo := task.NewPgxRepository(cfg.DBPool)
	taskService := task.NewService(taskRepo)

	// Consultation Module
	consultRepo := consultation.NewPgxRepository(cfg.DBPool, taskRepo)
	consultService := consultation.NewService(consultRepo, userService, notifService, cfg.Logger)

	// API Router Config
	routerParams := api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         splitOrigins(cfg.ProdOrigins),
		UserService:         userService,
		ConsultationService: consultService,
		TaskService:         taskService,
		JWTManager:          jwtManager,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Dispatcher: dispatcher,
	}
}

// splitOrigins turns the comma-separated PROD_ORIGINS value into a slice.
func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
