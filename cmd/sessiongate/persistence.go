package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sessiongate/internal/session/adapters/persistence/memory"
	"sessiongate/internal/session/adapters/persistence/postgres"
	"sessiongate/internal/session/adapters/persistence/redis"
	"sessiongate/internal/session/adapters/persistence/sealed"
	"sessiongate/internal/session/config"
	"sessiongate/internal/session/db"
	"sessiongate/internal/session/ports"
	dbredis "sessiongate/pkg/db/redis"
	"sessiongate/pkg/logger"
)

const (
	ErrBuildCodec     = "failed to build token codec"
	LogCleanupSkipped = "expired session tokens cleanup failed"
	LogClosingRedis   = "closing Redis connection"
)

type closeFunc func(context.Context) error

func noopClose(context.Context) error { return nil }

// openPersistence выбирает хранилище токенов по cfg.Persistence.Driver.
func openPersistence(ctx context.Context, cfg *config.Config) (ports.TokenPersistence, closeFunc, error) {
	codec, err := sealed.FromKey(cfg.Crypto.SealingKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ErrBuildCodec, err)
	}

	switch cfg.Persistence.Driver {
	case config.DriverRedis:
		client, err := dbredis.NewClient(ctx, &dbredis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return redis.NewStore(client, cfg.Session.Slot, codec), func(ctx context.Context) error {
			logger.Log(ctx).Info(ctx, LogClosingRedis)
			return client.Close()
		}, nil

	case config.DriverPostgres:
		database, err := db.Open(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewStore(database.Pool(), cfg.Session.Slot, codec)
		if err := store.CleanupExpired(ctx); err != nil {
			logger.Log(ctx).Warn(ctx, LogCleanupSkipped, zap.Error(err))
		}
		return store, func(ctx context.Context) error {
			database.Close(ctx)
			return nil
		}, nil

	default:
		return memory.New(), noopClose, nil
	}
}
