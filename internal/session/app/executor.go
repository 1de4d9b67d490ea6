package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sessiongate/internal/session/domain"
	"sessiongate/internal/session/metrics"
	"sessiongate/internal/session/ports"
	"sessiongate/pkg/logger"
)

// Константы для логирования.
const (
	LogRequestRejected     = "access token rejected, refreshing before retry"
	LogRequestRetryDenied  = "access token rejected after refresh"
	LogRequestFailed       = "authenticated request failed"
	LogRequestRetrySkipped = "refresh failed, request not retried"

	opExecute = "authenticated request"
)

// DefaultRequestTimeout ограничивает одну попытку запроса, если таймаут не задан.
const DefaultRequestTimeout = 30 * time.Second

// Классы результатов для метрик.
const (
	resultOK             = "ok"
	resultRetriedOK      = "retried_ok"
	resultSessionExpired = "session_expired"
	resultFailed         = "failed"
)

var errRejectedAfterRefresh = errors.New("access token rejected again after refresh")

// ExecutorOptions настраивает Executor.
type ExecutorOptions struct {
	// RequestTimeout ограничивает каждую попытку отдельно.
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
}

// Executor выполняет один логический запрос с одним повтором после обновления токена.
type Executor struct {
	coordinator *RefreshCoordinator
	transport   ports.Transport
	timeout     time.Duration
	metrics     *metrics.Metrics
}

// NewExecutor создает Executor.
func NewExecutor(coordinator *RefreshCoordinator, transport ports.Transport, opts ExecutorOptions) *Executor {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &Executor{
		coordinator: coordinator,
		transport:   transport,
		timeout:     opts.RequestTimeout,
		metrics:     opts.Metrics,
	}
}

// Execute выполняет запрос. При 401 обновляет токены и повторяет запрос ровно один раз;
// повторный 401 возвращается как SessionExpired. Остальные ошибки не повторяются.
func (e *Executor) Execute(ctx context.Context, req domain.Request) (*domain.Response, error) {
	log := logger.Log(ctx).Named("executor").With(
		zap.String("method", req.Method),
		zap.String("endpoint", req.Endpoint))

	token, err := e.coordinator.AccessToken(ctx)
	if err != nil {
		e.record(err, false)
		return nil, err
	}

	resp, err := e.attempt(ctx, req, token)
	if err == nil || !errors.Is(err, domain.ErrAuthRejected) {
		if err != nil {
			log.Debug(ctx, LogRequestFailed, zap.Error(err))
		}
		e.record(err, false)
		return resp, err
	}

	log.Info(ctx, LogRequestRejected)
	pair, err := e.coordinator.RefreshRejected(ctx, token)
	if err != nil {
		log.Warn(ctx, LogRequestRetrySkipped, zap.Error(err))
		e.record(err, false)
		return nil, err
	}

	e.metrics.RequestRetried()
	resp, err = e.attempt(ctx, req, pair.Access)
	if errors.Is(err, domain.ErrAuthRejected) {
		log.Warn(ctx, LogRequestRetryDenied)
		var rejected *domain.Error
		errors.As(err, &rejected)
		err = &domain.Error{
			Kind:       domain.KindSessionExpired,
			Op:         opExecute,
			StatusCode: http.StatusUnauthorized,
			Body:       rejected.Body,
			Err:        errRejectedAfterRefresh,
		}
	}
	e.record(err, true)
	return resp, err
}

// attempt выполняет одну попытку с собственным таймаутом и классифицирует результат.
func (e *Executor) attempt(ctx context.Context, req domain.Request, token domain.AccessToken) (*domain.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.transport.Do(reqCtx, req, token.Value)
	if err != nil {
		return nil, domain.FromTransport(opExecute, err)
	}
	if statusErr := domain.FromStatus(opExecute, resp.StatusCode, resp.Body); statusErr != nil {
		return nil, statusErr
	}
	return resp, nil
}

func (e *Executor) record(err error, retried bool) {
	switch {
	case err == nil && retried:
		e.metrics.RequestCompleted(resultRetriedOK)
	case err == nil:
		e.metrics.RequestCompleted(resultOK)
	case errors.Is(err, domain.ErrSessionExpired):
		e.metrics.RequestCompleted(resultSessionExpired)
	default:
		e.metrics.RequestCompleted(resultFailed)
	}
}
