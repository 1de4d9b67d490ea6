// Package app содержит координацию сессии клиента: хранилище токенов,
// single-flight обновление, выполнение запросов с повтором и фасад сессии.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"sessiongate/internal/session/domain"
	"sessiongate/internal/session/ports"
	"sessiongate/pkg/logger"
)

// Константы для логирования.
const (
	LogStoreRestored        = "session restored from persistence"
	LogStoreRestoreExpired  = "persisted refresh token expired, discarding"
	LogStoreRestoreNotFound = "no persisted session"

	ErrStoreLoad  = "failed to load persisted tokens"
	ErrStoreSave  = "failed to persist tokens"
	ErrStoreClear = "failed to clear persisted tokens"
)

// TokenStore хранит текущий снимок сессии.
// Чтение не блокирует; запись выполняется только через CompareAndSet или Clear.
type TokenStore struct {
	state       atomic.Pointer[domain.SessionState]
	persistence ports.TokenPersistence
	syncMu      sync.Mutex
	now         func() time.Time
}

// NewTokenStore создает хранилище в состоянии LoggedOut. persistence может быть nil.
func NewTokenStore(persistence ports.TokenPersistence) *TokenStore {
	s := &TokenStore{persistence: persistence, now: time.Now}
	s.state.Store(domain.LoggedOutState())
	return s
}

// Read возвращает текущий снимок.
func (s *TokenStore) Read() *domain.SessionState {
	return s.state.Load()
}

// CompareAndSet заменяет снимок, если текущий все еще expected.
func (s *TokenStore) CompareAndSet(expected, next *domain.SessionState) bool {
	return s.state.CompareAndSwap(expected, next)
}

// Clear переводит хранилище в LoggedOut и возвращает предыдущий снимок.
func (s *TokenStore) Clear() *domain.SessionState {
	return s.state.Swap(domain.LoggedOutState())
}

// Restore загружает сохраненную пару при старте процесса.
// Пара с истекшим refresh-токеном удаляется из хранилища.
func (s *TokenStore) Restore(ctx context.Context) error {
	if s.persistence == nil {
		return nil
	}
	log := logger.Log(ctx).Named("token_store")

	pair, err := s.persistence.Load(ctx)
	if err != nil {
		log.Error(ctx, ErrStoreLoad, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrStoreLoad, err)
	}
	if pair == nil || pair.Empty() {
		log.Debug(ctx, LogStoreRestoreNotFound)
		return nil
	}
	if pair.Refresh.Expired(s.now()) {
		log.Info(ctx, LogStoreRestoreExpired, zap.Time("refresh_expires_at", pair.Refresh.ExpiresAt))
		if err := s.persistence.Clear(ctx); err != nil {
			return fmt.Errorf("%s: %w", ErrStoreClear, err)
		}
		return nil
	}

	cur := s.Read()
	if cur.Kind != domain.LoggedOut {
		return nil
	}
	if s.CompareAndSet(cur, domain.AuthenticatedState(*pair)) {
		log.Info(ctx, LogStoreRestored,
			zap.Time("access_expires_at", pair.Access.ExpiresAt),
			zap.Time("refresh_expires_at", pair.Refresh.ExpiresAt))
	}
	return nil
}

// Sync записывает актуальный снимок в persistence.
// Вызовы сериализованы, поэтому последним сохраняется самое свежее состояние.
func (s *TokenStore) Sync(ctx context.Context) error {
	if s.persistence == nil {
		return nil
	}
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	cur := s.Read()
	if cur.HasTokens() {
		if err := s.persistence.Save(ctx, cur.Tokens); err != nil {
			return fmt.Errorf("%s: %w", ErrStoreSave, err)
		}
		return nil
	}
	if err := s.persistence.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrStoreClear, err)
	}
	return nil
}
