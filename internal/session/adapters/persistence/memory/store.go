// Package memory хранит пару токенов в памяти процесса.
package memory

import (
	"context"
	"sync"

	"sessiongate/internal/session/domain"
)

// Store - TokenPersistence без долговременного хранения.
type Store struct {
	mu   sync.Mutex
	pair *domain.TokenPair
}

// New создает пустое хранилище.
func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (*domain.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return nil, nil
	}
	pair := *s.pair
	return &pair, nil
}

func (s *Store) Save(_ context.Context, pair domain.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &pair
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}
