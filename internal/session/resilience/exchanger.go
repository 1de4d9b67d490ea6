package resilience

import (
	"context"

	"sessiongate/internal/session/domain"
	"sessiongate/internal/session/ports"
)

const opCircuit = "token exchange"

// Exchanger оборачивает ports.TokenExchanger в Circuit Breaker.
// Повторных попыток нет: при открытом breaker вызов сразу завершается Transient.
type Exchanger struct {
	next    ports.TokenExchanger
	breaker *CircuitBreaker
}

// NewExchanger создает обертку над next.
func NewExchanger(next ports.TokenExchanger, breaker *CircuitBreaker) *Exchanger {
	return &Exchanger{next: next, breaker: breaker}
}

// Refresh обменивает refresh-токен через breaker.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	return e.guard(ctx, func() (domain.TokenPair, error) {
		return e.next.Refresh(ctx, refreshToken)
	})
}

// Login выполняет вход через breaker.
func (e *Exchanger) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	return e.guard(ctx, func() (domain.TokenPair, error) {
		return e.next.Login(ctx, email, password)
	})
}

// Logout отзывает токен через breaker.
func (e *Exchanger) Logout(ctx context.Context, refreshToken string) error {
	_, err := e.guard(ctx, func() (domain.TokenPair, error) {
		return domain.TokenPair{}, e.next.Logout(ctx, refreshToken)
	})
	return err
}

func (e *Exchanger) guard(ctx context.Context, fn func() (domain.TokenPair, error)) (domain.TokenPair, error) {
	if !e.breaker.AllowRequest(ctx) {
		return domain.TokenPair{}, domain.NewError(domain.KindTransient, opCircuit, ErrCircuitOpen)
	}
	pair, err := fn()
	e.breaker.RecordResult(ctx, isOutage(err))
	return pair, err
}

// isOutage сообщает, что сервер недоступен. Отказ в сессии и ошибки клиента
// означают, что сервер ответил, и breaker не открывают.
func isOutage(err error) bool {
	if err == nil {
		return false
	}
	switch domain.KindOf(err) {
	case domain.KindTransient, domain.KindUnknown:
		return true
	default:
		return false
	}
}
