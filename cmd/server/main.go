package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/app"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/config"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/db"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.IsProduction)
	defer logger.Sync()

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer pool.Close()

	// Apply schema migrations
	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Fatal("failed to init migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Build the application container
	container := app.NewContainer(app.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		DBPool:             pool,
		JWTSecret:          cfg.JWTSecret,
		JWTTTL:             cfg.JWTAccessTokenTTL,
		BcryptCost:         cfg.BcryptCost,
		NotifyPollInterval: cfg.NotifyPollInterval,
		Logger:             logger,
	})

	// Start the notification dispatcher loop
	container.Dispatcher.Start(ctx)

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	// Run server in separate goroutine
	go func() {
		logger.Info("server running", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server first, then drain the dispatcher
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	container.Dispatcher.Stop()

	logger.Info("server exited gracefully")
}
