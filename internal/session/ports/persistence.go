package ports

import (
	"context"

	"sessiongate/internal/session/domain"
)

// TokenPersistence хранит пару токенов между перезапусками процесса.
type TokenPersistence interface {
	// Load возвращает сохраненную пару или nil, если ее нет.
	Load(ctx context.Context) (*domain.TokenPair, error)

	Save(ctx context.Context, pair domain.TokenPair) error

	Clear(ctx context.Context) error
}
