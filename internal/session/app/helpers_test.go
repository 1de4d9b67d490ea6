package app_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sessiongate/internal/session/adapters/persistence/memory"
	"sessiongate/internal/session/app"
	"sessiongate/internal/session/domain"
	"sessiongate/internal/session/metrics"
)

// rotatingExchanger принимает только последний выданный refresh-токен.
type rotatingExchanger struct {
	mu       sync.Mutex
	current  string
	seq      int
	failWith error
	gate     chan struct{}

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	ctxErrors    atomic.Int32
}

func newRotatingExchanger(current string) *rotatingExchanger {
	return &rotatingExchanger{current: current}
}

func (f *rotatingExchanger) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	f.refreshCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			f.ctxErrors.Add(1)
			return domain.TokenPair{}, domain.FromContext("refresh", ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return domain.TokenPair{}, f.failWith
	}
	if refreshToken != f.current {
		return domain.TokenPair{}, &domain.Error{
			Kind:       domain.KindSessionExpired,
			Op:         "refresh",
			StatusCode: http.StatusUnauthorized,
		}
	}
	f.seq++
	f.current = fmt.Sprintf("refresh-%d", f.seq)
	return domain.TokenPair{
		Access:  domain.AccessToken{Value: fmt.Sprintf("access-%d", f.seq), ExpiresAt: time.Now().Add(time.Hour)},
		Refresh: domain.RefreshToken{Value: f.current, ExpiresAt: time.Now().Add(24 * time.Hour)},
	}, nil
}

func (f *rotatingExchanger) Login(_ context.Context, email, password string) (domain.TokenPair, error) {
	if email == "" || password != "secret" {
		return domain.TokenPair{}, &domain.Error{Kind: domain.KindClientError, StatusCode: http.StatusUnauthorized}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = "refresh-login"
	return domain.TokenPair{
		Access:  domain.AccessToken{Value: "access-login", ExpiresAt: time.Now().Add(time.Hour)},
		Refresh: domain.RefreshToken{Value: f.current, ExpiresAt: time.Now().Add(24 * time.Hour)},
	}, nil
}

func (f *rotatingExchanger) Logout(_ context.Context, _ string) error {
	f.logoutCalls.Add(1)
	return nil
}

// transportFunc адаптирует функцию к ports.Transport.
type transportFunc func(ctx context.Context, req domain.Request, bearer string) (*domain.Response, error)

func (f transportFunc) Do(ctx context.Context, req domain.Request, bearer string) (*domain.Response, error) {
	return f(ctx, req, bearer)
}

func okResponse(body string) *domain.Response {
	return &domain.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

type harness struct {
	store       *app.TokenStore
	persistence *memory.Store
	coordinator *app.RefreshCoordinator
	controller  *app.Controller
	exchanger   *rotatingExchanger
	metrics     *metrics.Metrics
}

func newHarness(t *testing.T, exchanger *rotatingExchanger, transport transportFunc) *harness {
	t.Helper()

	persistence := memory.New()
	store := app.NewTokenStore(persistence)
	notifier := app.NewNotifier()
	m := metrics.New()
	coordinator := app.NewRefreshCoordinator(store, exchanger, notifier, app.CoordinatorOptions{
		RefreshTimeout: 2 * time.Second,
		Metrics:        m,
	})
	if transport == nil {
		transport = func(context.Context, domain.Request, string) (*domain.Response, error) {
			return okResponse("ok"), nil
		}
	}
	executor := app.NewExecutor(coordinator, transport, app.ExecutorOptions{
		RequestTimeout: 2 * time.Second,
		Metrics:        m,
	})

	return &harness{
		store:       store,
		persistence: persistence,
		coordinator: coordinator,
		controller:  app.NewController(store, coordinator, executor, exchanger, notifier),
		exchanger:   exchanger,
		metrics:     m,
	}
}

func pair(access, refresh string, accessExpiry time.Time) domain.TokenPair {
	return domain.TokenPair{
		Access:  domain.AccessToken{Value: access, ExpiresAt: accessExpiry},
		Refresh: domain.RefreshToken{Value: refresh, ExpiresAt: time.Now().Add(24 * time.Hour)},
	}
}

func (h *harness) establish(t *testing.T, p domain.TokenPair) {
	t.Helper()
	require.NoError(t, h.controller.Establish(context.Background(), p))
}
