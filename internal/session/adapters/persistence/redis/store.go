// Package redis хранит пару токенов сессии в Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sessiongate/internal/session/adapters/persistence/sealed"
	"sessiongate/internal/session/domain"
	"sessiongate/pkg/logger"
)

// Константы для логирования.
const (
	LogMethodLoad  = "load"
	LogMethodSave  = "save"
	LogMethodClear = "clear"

	ErrorFailedToGet    = "failed to get tokens from redis"
	ErrorFailedToSet    = "failed to set tokens in redis"
	ErrorFailedToDelete = "failed to delete tokens from redis"
)

const keyPrefix = "session:tokens:"

// Store реализует ports.TokenPersistence поверх Redis.
// Ключ живет до истечения refresh-токена.
type Store struct {
	client redis.Cmdable
	key    string
	codec  sealed.Codec
	now    func() time.Time
}

// NewStore создает хранилище для слота slot.
func NewStore(client redis.Cmdable, slot string, codec sealed.Codec) *Store {
	if codec == nil {
		codec = sealed.JSON{}
	}
	return &Store{client: client, key: keyPrefix + slot, codec: codec, now: time.Now}
}

// Load возвращает сохраненную пару или nil, если ее нет.
func (s *Store) Load(ctx context.Context) (*domain.TokenPair, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodLoad), zap.String("key", s.key))

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		log.Error(ctx, ErrorFailedToGet, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrorFailedToGet, err)
	}

	pair, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Save перезаписывает пару. Уже истекший refresh-токен не сохраняется.
func (s *Store) Save(ctx context.Context, pair domain.TokenPair) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSave), zap.String("key", s.key))

	var ttl time.Duration
	if !pair.Refresh.ExpiresAt.IsZero() {
		ttl = pair.Refresh.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Clear(ctx)
		}
	}

	data, err := s.codec.Encode(pair)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		log.Error(ctx, ErrorFailedToSet, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSet, err)
	}
	return nil
}

// Clear удаляет пару.
func (s *Store) Clear(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodClear), zap.String("key", s.key))

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		log.Error(ctx, ErrorFailedToDelete, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToDelete, err)
	}
	return nil
}
