package app

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sessiongate/internal/session/domain"
	"sessiongate/internal/session/ports"
	"sessiongate/pkg/logger"
)

// Константы для логирования.
const (
	LogControllerLogin        = "session controller: login"
	LogControllerLogout       = "session controller: logout"
	LogControllerExpired      = "session controller: session expired, tokens cleared"
	LogServerLogoutFailed     = "server-side logout failed, local session cleared anyway"
	LogControllerStartRestore = "session controller: restoring session"

	ErrControllerLogin = "login failed"
)

// Controller - фасад сессии для вызывающих модулей.
// Сам не выполняет навигацию: о необходимости входа сообщает ошибкой
// ErrSessionExpired и событием Notifier.
type Controller struct {
	store       *TokenStore
	coordinator *RefreshCoordinator
	executor    *Executor
	exchanger   ports.TokenExchanger
	notifier    *Notifier
}

// NewController собирает фасад из готовых компонентов.
func NewController(
	store *TokenStore,
	coordinator *RefreshCoordinator,
	executor *Executor,
	exchanger ports.TokenExchanger,
	notifier *Notifier,
) *Controller {
	return &Controller{
		store:       store,
		coordinator: coordinator,
		executor:    executor,
		exchanger:   exchanger,
		notifier:    notifier,
	}
}

// Start восстанавливает сохраненную сессию.
func (c *Controller) Start(ctx context.Context) error {
	logger.Log(ctx).Info(ctx, LogControllerStartRestore)
	return c.store.Restore(ctx)
}

// GetValidAccessToken возвращает действующий access-токен.
func (c *Controller) GetValidAccessToken(ctx context.Context) (domain.AccessToken, error) {
	token, err := c.coordinator.AccessToken(ctx)
	if err != nil {
		return domain.AccessToken{}, c.handle(ctx, err)
	}
	return token, nil
}

// MakeAuthenticatedRequest выполняет вызов endpoint с текущими учетными данными.
func (c *Controller) MakeAuthenticatedRequest(
	ctx context.Context,
	endpoint, method string,
	body []byte,
) (*domain.Response, error) {
	if method == "" {
		method = http.MethodGet
	}
	return c.Execute(ctx, domain.Request{Endpoint: endpoint, Method: method, Body: body})
}

// Execute выполняет произвольный запрос, включая заголовки.
func (c *Controller) Execute(ctx context.Context, req domain.Request) (*domain.Response, error) {
	resp, err := c.executor.Execute(ctx, req)
	if err != nil {
		return nil, c.handle(ctx, err)
	}
	return resp, nil
}

// Login выполняет вход и устанавливает новую пару токенов.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	logger.Log(ctx).Info(ctx, LogControllerLogin)

	pair, err := c.exchanger.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return c.coordinator.Establish(ctx, pair)
}

// Establish устанавливает пару, полученную вне контроллера.
func (c *Controller) Establish(ctx context.Context, pair domain.TokenPair) error {
	return c.coordinator.Establish(ctx, pair)
}

// Logout очищает сессию. Повторный вызов ничего не делает.
// Отзыв refresh-токена на сервере выполняется по возможности и не влияет на результат.
func (c *Controller) Logout(ctx context.Context) error {
	log := logger.Log(ctx)

	prev := c.store.Clear()
	if prev.Kind == domain.LoggedOut {
		return nil
	}
	log.Info(ctx, LogControllerLogout, zap.Stringer("previous_state", prev.Kind))

	if err := c.store.Sync(ctx); err != nil {
		log.Error(ctx, LogPersistFailed, zap.Error(err))
	}

	if prev.HasTokens() && c.exchanger != nil {
		if err := c.exchanger.Logout(ctx, prev.Tokens.Refresh.Value); err != nil {
			log.Warn(ctx, LogServerLogoutFailed, zap.Error(err))
		}
	}
	return nil
}

// State возвращает вид текущего состояния сессии.
func (c *Controller) State() domain.StateKind {
	return c.store.Read().Kind
}

// Subscribe подписывает на событие "сессия стала недействительной".
func (c *Controller) Subscribe() (<-chan InvalidationEvent, func()) {
	return c.notifier.Subscribe()
}

// handle очищает токены при SessionExpired; остальные ошибки возвращаются как есть.
func (c *Controller) handle(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrSessionExpired) {
		if c.coordinator.Invalidate(ctx, err.Error()) {
			logger.Log(ctx).Warn(ctx, LogControllerExpired, zap.Error(err))
		}
	}
	return err
}
