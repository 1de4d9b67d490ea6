// Package postgres хранит пару токенов сессии в таблице session_tokens.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"sessiongate/internal/session/adapters/persistence/sealed"
	"sessiongate/internal/session/domain"
	"sessiongate/pkg/logger"
)

// Константы ошибок.
const (
	ErrLoadTokens    = "error querying session tokens"
	ErrStoreTokens   = "error storing session tokens"
	ErrDeleteTokens  = "error deleting session tokens"
	ErrCleanupTokens = "error cleaning up expired session tokens"

	LogTokensCleanedUp = "expired session tokens cleaned up"
)

// PgxPoolInterface - часть pgxpool.Pool, нужная хранилищу.
type PgxPoolInterface interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
}

// Store реализует ports.TokenPersistence поверх Postgres.
type Store struct {
	pool  PgxPoolInterface
	slot  string
	codec sealed.Codec
}

// NewStore создает хранилище для слота slot.
func NewStore(pool PgxPoolInterface, slot string, codec sealed.Codec) *Store {
	if codec == nil {
		codec = sealed.JSON{}
	}
	return &Store{pool: pool, slot: slot, codec: codec}
}

// Load возвращает сохраненную пару или nil, если ее нет.
func (s *Store) Load(ctx context.Context) (*domain.TokenPair, error) {
	log := logger.Log(ctx).With(zap.String("repository", "session_tokens"), zap.String("method", "Load"))

	query := `
        SELECT payload
        FROM session_tokens
        WHERE slot = $1
    `

	var payload []byte
	if err := s.pool.QueryRow(ctx, query, s.slot).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug(ctx, "session tokens not found")
			return nil, nil
		}
		log.Error(ctx, ErrLoadTokens, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrLoadTokens, err)
	}

	pair, err := s.codec.Decode(payload)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Save сохраняет пару, заменяя предыдущую.
func (s *Store) Save(ctx context.Context, pair domain.TokenPair) error {
	log := logger.Log(ctx).With(zap.String("repository", "session_tokens"), zap.String("method", "Save"))

	payload, err := s.codec.Encode(pair)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO session_tokens (slot, payload, refresh_expires_at, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (slot) DO UPDATE
        SET payload = EXCLUDED.payload,
            refresh_expires_at = EXCLUDED.refresh_expires_at,
            updated_at = NOW()
    `

	if _, err := s.pool.Exec(ctx, query, s.slot, payload, nullableTime(pair.Refresh.ExpiresAt)); err != nil {
		log.Error(ctx, ErrStoreTokens, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrStoreTokens, err)
	}
	return nil
}

// Clear удаляет пару слота.
func (s *Store) Clear(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("repository", "session_tokens"), zap.String("method", "Clear"))

	query := `
        DELETE FROM session_tokens
        WHERE slot = $1
    `

	if _, err := s.pool.Exec(ctx, query, s.slot); err != nil {
		log.Error(ctx, ErrDeleteTokens, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrDeleteTokens, err)
	}
	return nil
}

// CleanupExpired удаляет пары всех слотов с истекшим refresh-токеном.
func (s *Store) CleanupExpired(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("repository", "session_tokens"), zap.String("method", "CleanupExpired"))

	query := `
        DELETE FROM session_tokens
        WHERE refresh_expires_at < NOW()
    `

	result, err := s.pool.Exec(ctx, query)
	if err != nil {
		log.Error(ctx, ErrCleanupTokens, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrCleanupTokens, err)
	}

	log.Info(ctx, LogTokensCleanedUp, zap.Int64("removed_count", result.RowsAffected()))
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
