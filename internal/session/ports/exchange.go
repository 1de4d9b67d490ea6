// Package ports определяет интерфейсы внешних коллабораторов сессии.
package ports

import (
	"context"

	"sessiongate/internal/session/domain"
)

// TokenExchanger обращается к эндпоинтам входа и обмена токенов.
// Ошибки возвращаются классифицированными (*domain.Error): KindSessionExpired
// означает, что refresh-токен отклонен окончательно.
type TokenExchanger interface {
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)

	Login(ctx context.Context, email, password string) (domain.TokenPair, error)

	Logout(ctx context.Context, refreshToken string) error
}
