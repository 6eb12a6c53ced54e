package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrator wraps goose to apply schema migrations at startup.
type Migrator struct {
	db             *sql.DB
	migrationsPath string
	logger         *zap.Logger
}

// NewMigrator prepares a migrator over the given pool.
// Goose works with *sql.DB, so one is opened from the pool.
func NewMigrator(pool *pgxpool.Pool, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}

	return &Migrator{
		db:             stdlib.OpenDBFromPool(pool),
		migrationsPath: migrationsPath,
		logger:         logger,
	}, nil
}

// Run applies all pending migrations.
func (mg *Migrator) Run(ctx context.Context) error {
	mg.logger.Info("applying database migrations", zap.String("dir", mg.migrationsPath))

	if err := goose.UpContext(ctx, mg.db, mg.migrationsPath); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, mg.db)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}
	mg.logger.Info("migrations applied", zap.Int64("version", version))

	return nil
}

// Close closes the migrator's sql.DB. The underlying pool stays open.
func (mg *Migrator) Close() error {
	if mg.db != nil {
		return mg.db.Close()
	}
	return nil
}
