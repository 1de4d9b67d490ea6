package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"sessiongate/internal/session/domain"
	"sessiongate/internal/session/metrics"
	"sessiongate/internal/session/ports"
	"sessiongate/pkg/logger"
)

// Константы для логирования.
const (
	LogRefreshStarted     = "token refresh started"
	LogRefreshSucceeded   = "token refresh succeeded"
	LogRefreshTerminal    = "refresh token rejected, session invalidated"
	LogRefreshTransient   = "token refresh failed, keeping current tokens"
	LogRefreshDiscarded   = "token refresh result discarded, session changed meanwhile"
	LogSessionEstablished = "session established"
	LogSessionInvalidated = "session invalidated"
	LogPersistFailed      = "failed to persist session state"

	opRefresh   = "refresh tokens"
	opAccess    = "get access token"
	opEstablish = "establish session"
)

// DefaultRefreshTimeout ограничивает один обмен токенов, если таймаут не задан.
const DefaultRefreshTimeout = 15 * time.Second

// DefaultPersistTimeout ограничивает сохранение пары после обновления.
const DefaultPersistTimeout = 5 * time.Second

var (
	errSessionInvalid      = errors.New("session is invalid, login required")
	errRefreshTokenExpired = errors.New("refresh token expired locally")
	errEmptyTokenPair      = errors.New("token pair has no access or refresh token")
)

// CoordinatorOptions настраивает RefreshCoordinator.
type CoordinatorOptions struct {
	// RefreshTimeout ограничивает один обмен токенов.
	RefreshTimeout time.Duration
	// ExpiryLeeway заставляет считать access-токен истекшим раньше срока.
	ExpiryLeeway time.Duration
	// PersistTimeout ограничивает запись пары в persistence после обновления.
	PersistTimeout time.Duration
	Now            func() time.Time
	Metrics        *metrics.Metrics
}

// RefreshCoordinator - единственный писатель токенов.
// Одновременные запросы на обновление сливаются в один сетевой вызов.
type RefreshCoordinator struct {
	store     *TokenStore
	exchanger ports.TokenExchanger
	notifier  *Notifier
	metrics   *metrics.Metrics
	timeout   time.Duration
	persist   time.Duration
	leeway    time.Duration
	now       func() time.Time
}

// NewRefreshCoordinator создает координатор поверх store и exchanger.
func NewRefreshCoordinator(
	store *TokenStore,
	exchanger ports.TokenExchanger,
	notifier *Notifier,
	opts CoordinatorOptions,
) *RefreshCoordinator {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &RefreshCoordinator{
		store:     store,
		exchanger: exchanger,
		notifier:  notifier,
		metrics:   opts.Metrics,
		timeout:   opts.RefreshTimeout,
		persist:   opts.PersistTimeout,
		leeway:    opts.ExpiryLeeway,
		now:       opts.Now,
	}
}

// Refresh обменивает текущий refresh-токен на новую пару.
// Если обновление уже идет, ждет его результат без нового сетевого вызова.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (domain.TokenPair, error) {
	return c.acquire(ctx, opRefresh, func(*domain.SessionState) bool { return true })
}

// RefreshRejected обновляет пару после того, как сервер отклонил access-токен rejected.
// Если в хранилище уже другой действующий токен, он возвращается без обмена.
func (c *RefreshCoordinator) RefreshRejected(ctx context.Context, rejected domain.AccessToken) (domain.TokenPair, error) {
	return c.acquire(ctx, opRefresh, func(cur *domain.SessionState) bool {
		return cur.Tokens.Access.Value == rejected.Value || !cur.Tokens.Access.Valid(c.now(), c.leeway)
	})
}

// AccessToken возвращает действующий access-токен, при необходимости обновляя пару.
func (c *RefreshCoordinator) AccessToken(ctx context.Context) (domain.AccessToken, error) {
	pair, err := c.acquire(ctx, opAccess, func(cur *domain.SessionState) bool {
		return !cur.Tokens.Access.Valid(c.now(), c.leeway)
	})
	if err != nil {
		return domain.AccessToken{}, err
	}
	return pair.Access, nil
}

// acquire возвращает пару из хранилища или запускает/ожидает обновление,
// если needRefresh сообщает, что текущая пара не годится.
func (c *RefreshCoordinator) acquire(
	ctx context.Context,
	op string,
	needRefresh func(*domain.SessionState) bool,
) (domain.TokenPair, error) {
	for {
		cur := c.store.Read()
		switch cur.Kind {
		case domain.Refreshing:
			c.metrics.RefreshJoined()
			return cur.Flight.Wait(ctx)
		case domain.Authenticated:
			if !needRefresh(cur) {
				return cur.Tokens, nil
			}
			flight := domain.NewFlight()
			next := domain.RefreshingState(cur.Tokens, flight)
			if !c.store.CompareAndSet(cur, next) {
				continue
			}
			go c.run(ctx, next, flight)
			return flight.Wait(ctx)
		case domain.Invalid:
			return domain.TokenPair{}, domain.NewError(domain.KindSessionExpired, op, errSessionInvalid)
		default:
			return domain.TokenPair{}, domain.NewError(domain.KindNotAuthenticated, op, nil)
		}
	}
}

// run выполняет обмен токенов для одного эпизода обновления.
// Контекст отвязан от вызывающего: его отмена не прерывает общий обмен.
func (c *RefreshCoordinator) run(callerCtx context.Context, refreshing *domain.SessionState, flight *domain.Flight) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(callerCtx), c.timeout)
	defer cancel()

	log := logger.Log(ctx).Named("refresh_coordinator")
	log.Debug(ctx, LogRefreshStarted, zap.Time("access_expires_at", refreshing.Tokens.Access.ExpiresAt))

	var pair domain.TokenPair
	var err error
	if refreshing.Tokens.Refresh.Expired(c.now()) {
		err = domain.NewError(domain.KindSessionExpired, opRefresh, errRefreshTokenExpired)
	} else {
		pair, err = c.exchanger.Refresh(ctx, refreshing.Tokens.Refresh.Value)
	}

	switch {
	case err == nil:
		if pair.Refresh.Value == "" {
			pair.Refresh = refreshing.Tokens.Refresh
		}
		pair, err = c.commit(ctx, refreshing, pair)
	case domain.KindOf(err) == domain.KindSessionExpired:
		log.Warn(ctx, LogRefreshTerminal, zap.Error(err))
		c.metrics.RefreshCompleted(metrics.OutcomeTerminal)
		c.invalidate(ctx, refreshing, err.Error())
	default:
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.FromTransport(opRefresh, err)
		}
		log.Warn(ctx, LogRefreshTransient, zap.Error(err))
		c.metrics.RefreshCompleted(metrics.OutcomeTransient)
		c.store.CompareAndSet(refreshing, domain.AuthenticatedState(refreshing.Tokens))
	}

	flight.Resolve(pair, err)

	// Ожидающие получают результат до записи; запись идет со своим таймаутом.
	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(callerCtx), c.persist)
	defer cancelPersist()
	c.sync(persistCtx)
}

// commit атомарно заменяет старую пару новой.
// Если сессию за время обмена сменили (выход, вход, инвалидация), результат отбрасывается.
func (c *RefreshCoordinator) commit(
	ctx context.Context,
	refreshing *domain.SessionState,
	pair domain.TokenPair,
) (domain.TokenPair, error) {
	log := logger.Log(ctx).Named("refresh_coordinator")

	if c.store.CompareAndSet(refreshing, domain.AuthenticatedState(pair)) {
		log.Info(ctx, LogRefreshSucceeded,
			zap.Time("access_expires_at", pair.Access.ExpiresAt),
			zap.Time("refresh_expires_at", pair.Refresh.ExpiresAt))
		c.metrics.RefreshCompleted(metrics.OutcomeSuccess)
		return pair, nil
	}

	c.metrics.RefreshCompleted(metrics.OutcomeDiscarded)
	cur := c.store.Read()
	log.Info(ctx, LogRefreshDiscarded, zap.Stringer("state", cur.Kind))
	switch cur.Kind {
	case domain.Authenticated:
		return cur.Tokens, nil
	case domain.Invalid:
		return domain.TokenPair{}, domain.NewError(domain.KindSessionExpired, opRefresh, errSessionInvalid)
	default:
		return domain.TokenPair{}, domain.NewError(domain.KindNotAuthenticated, opRefresh, nil)
	}
}

// Establish устанавливает пару, полученную при входе.
func (c *RefreshCoordinator) Establish(ctx context.Context, pair domain.TokenPair) error {
	if pair.Access.Value == "" || pair.Refresh.Value == "" {
		return domain.NewError(domain.KindMalformedResponse, opEstablish, errEmptyTokenPair)
	}
	for {
		cur := c.store.Read()
		if c.store.CompareAndSet(cur, domain.AuthenticatedState(pair)) {
			break
		}
	}
	logger.Log(ctx).Named("refresh_coordinator").Info(ctx, LogSessionEstablished,
		zap.Time("access_expires_at", pair.Access.ExpiresAt))
	c.sync(ctx)
	return nil
}

// Invalidate переводит сессию с токенами в Invalid.
// Сигнал о недействительной сессии отправляется только при фактическом переходе.
func (c *RefreshCoordinator) Invalidate(ctx context.Context, reason string) bool {
	for {
		cur := c.store.Read()
		if !cur.HasTokens() {
			return false
		}
		if c.invalidate(ctx, cur, reason) {
			c.sync(ctx)
			return true
		}
	}
}

func (c *RefreshCoordinator) invalidate(ctx context.Context, expected *domain.SessionState, reason string) bool {
	if !c.store.CompareAndSet(expected, domain.InvalidState()) {
		return false
	}
	logger.Log(ctx).Named("refresh_coordinator").Warn(ctx, LogSessionInvalidated, zap.String("reason", reason))
	c.metrics.SessionInvalidated()
	c.notifier.Publish(InvalidationEvent{Reason: reason, At: c.now()})
	return true
}

func (c *RefreshCoordinator) sync(ctx context.Context) {
	if err := c.store.Sync(ctx); err != nil {
		logger.Log(ctx).Named("refresh_coordinator").Error(ctx, LogPersistFailed, zap.Error(err))
	}
}
