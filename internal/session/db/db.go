// Package db открывает базу Postgres для хранения токенов сессии.
package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sessiongate/internal/session/config"
	"sessiongate/pkg/db/postgres"
	"sessiongate/pkg/logger"
)

// Константы для сообщений логгера.
const (
	LogDBInitializing    = "initializing session database"
	LogDBInitialized     = "session database initialized successfully"
	LogMigrationStarting = "starting session database migrations"
)

// Константы для сообщений об ошибках.
const (
	ErrDBMigrations = "failed to apply session database migrations"
	ErrDBConnection = "failed to connect to session database"
)

// Open применяет миграции из cfg.MigrationsDir и открывает пул соединений.
func Open(ctx context.Context, cfg *config.PostgresConfig) (*postgres.Database, error) {
	log := logger.Log(ctx)

	log.Info(ctx, LogDBInitializing,
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Int32("min_conn", cfg.MinConn),
		zap.Int32("max_conn", cfg.MaxConn))

	source, err := postgres.MigrationsSource(cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrDBMigrations, err)
	}

	log.Info(ctx, LogMigrationStarting, zap.String("migrations_path", source))
	if err := postgres.MigrateDSN(ctx, cfg.DSN(), source); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrDBMigrations, err)
	}

	database, err := postgres.New(ctx, postgres.Options{
		DSN:            cfg.DSN(),
		MinConns:       cfg.MinConn,
		MaxConns:       cfg.MaxConn,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrDBConnection, err)
	}

	log.Info(ctx, LogDBInitialized)
	return database, nil
}
