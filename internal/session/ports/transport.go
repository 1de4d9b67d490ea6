package ports

import (
	"context"

	"sessiongate/internal/session/domain"
)

// Transport выполняет один HTTP-вызов с bearer-токеном.
// Ответ с любым статусом не считается ошибкой; ошибка означает сбой транспорта.
type Transport interface {
	Do(ctx context.Context, req domain.Request, bearer string) (*domain.Response, error)
}
