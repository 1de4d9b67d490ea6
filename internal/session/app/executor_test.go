package app_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiongate/internal/session/domain"
)

func unauthorized(body string) *domain.Response {
	return &domain.Response{StatusCode: http.StatusUnauthorized, Body: []byte(body)}
}

func TestSimultaneousRejectionsShareOneRefresh(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")

	var arrivals sync.WaitGroup
	arrivals.Add(2)
	var calls atomic.Int32
	transport := transportFunc(func(ctx context.Context, _ domain.Request, bearer string) (*domain.Response, error) {
		calls.Add(1)
		if bearer == "access-0" {
			arrivals.Done()
			arrivals.Wait()
			return unauthorized(`{"error":"token expired"}`), nil
		}
		return okResponse(bearer), nil
	})
	h := newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	var wg sync.WaitGroup
	results := make([]*domain.Response, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.controller.MakeAuthenticatedRequest(context.Background(), "/notes", "", nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-1", string(results[i].Body))
	}
	assert.Equal(t, int32(1), exchanger.refreshCalls.Load())
	assert.Equal(t, int32(4), calls.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.Retries()), 0)
}

func TestRejectionWithExpiredReplacementTokenRefreshes(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")
	var h *harness
	var calls atomic.Int32
	transport := transportFunc(func(_ context.Context, _ domain.Request, bearer string) (*domain.Response, error) {
		if calls.Add(1) == 1 {
			cur := h.store.Read()
			expired := pair("access-x", "refresh-0", time.Now().Add(-time.Minute))
			require.True(t, h.store.CompareAndSet(cur, domain.AuthenticatedState(expired)))
		}
		if bearer != "access-1" {
			return unauthorized(`{"error":"token expired"}`), nil
		}
		return okResponse(bearer), nil
	})
	h = newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	resp, err := h.controller.MakeAuthenticatedRequest(context.Background(), "/upload", http.MethodPost, []byte("payload"))

	require.NoError(t, err)
	assert.Equal(t, "access-1", string(resp.Body))
	assert.Equal(t, int32(1), exchanger.refreshCalls.Load())
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, domain.Authenticated, h.controller.State())
}

func TestDoubleRejectionExpiresSession(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")
	var calls atomic.Int32
	transport := transportFunc(func(context.Context, domain.Request, string) (*domain.Response, error) {
		calls.Add(1)
		return unauthorized(`{"error":"forbidden"}`), nil
	})
	h := newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	events, unsubscribe := h.controller.Subscribe()
	defer unsubscribe()

	resp, err := h.controller.MakeAuthenticatedRequest(context.Background(), "/notes", http.MethodGet, nil)

	assert.Nil(t, resp)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, http.StatusUnauthorized, derr.StatusCode)
	assert.JSONEq(t, `{"error":"forbidden"}`, string(derr.Body))

	assert.Equal(t, int32(1), exchanger.refreshCalls.Load())
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, domain.Invalid, h.controller.State())

	select {
	case <-events:
	case <-time.After(time.Second):
		t.Fatal("session invalid signal not delivered")
	}
	select {
	case ev := <-events:
		t.Fatalf("signal delivered twice: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	persisted, err := h.persistence.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")
	var calls atomic.Int32
	transport := transportFunc(func(context.Context, domain.Request, string) (*domain.Response, error) {
		calls.Add(1)
		return &domain.Response{StatusCode: http.StatusNotFound, Body: []byte("missing")}, nil
	})
	h := newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	_, err := h.controller.MakeAuthenticatedRequest(context.Background(), "/notes/42", http.MethodGet, nil)

	require.ErrorIs(t, err, domain.ErrClientError)
	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, http.StatusNotFound, derr.StatusCode)
	assert.Equal(t, "missing", string(derr.Body))
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, exchanger.refreshCalls.Load())
	assert.Equal(t, domain.Authenticated, h.controller.State())
}

func TestServerErrorIsTransientWithoutRetry(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")
	var calls atomic.Int32
	transport := transportFunc(func(context.Context, domain.Request, string) (*domain.Response, error) {
		calls.Add(1)
		return &domain.Response{StatusCode: http.StatusBadGateway}, nil
	})
	h := newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	_, err := h.controller.MakeAuthenticatedRequest(context.Background(), "/notes", http.MethodGet, nil)

	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, exchanger.refreshCalls.Load())
}

func TestTransportFailureIsTransient(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")
	var calls atomic.Int32
	transport := transportFunc(func(context.Context, domain.Request, string) (*domain.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	})
	h := newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	_, err := h.controller.MakeAuthenticatedRequest(context.Background(), "/notes", http.MethodPost, []byte("{}"))

	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.NotErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, domain.Authenticated, h.controller.State())
}

func TestRequestTimeoutIsTransient(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")
	transport := transportFunc(func(ctx context.Context, _ domain.Request, _ string) (*domain.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	h := newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := h.controller.MakeAuthenticatedRequest(ctx, "/notes", http.MethodGet, nil)

	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestFailedRefreshSkipsRetry(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")
	exchanger.failWith = &domain.Error{Kind: domain.KindTransient, Op: "refresh", StatusCode: http.StatusServiceUnavailable}
	var calls atomic.Int32
	transport := transportFunc(func(context.Context, domain.Request, string) (*domain.Response, error) {
		calls.Add(1)
		return unauthorized(""), nil
	})
	h := newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	_, err := h.controller.MakeAuthenticatedRequest(context.Background(), "/notes", http.MethodGet, nil)

	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), exchanger.refreshCalls.Load())
	assert.Equal(t, domain.Authenticated, h.controller.State())
}

func TestRequestCarriesBearerAndDefaults(t *testing.T) {
	exchanger := newRotatingExchanger("refresh-0")
	var got domain.Request
	var gotBearer string
	transport := transportFunc(func(_ context.Context, req domain.Request, bearer string) (*domain.Response, error) {
		got = req
		gotBearer = bearer
		return okResponse(`{"id":1}`), nil
	})
	h := newHarness(t, exchanger, transport)
	h.establish(t, pair("access-0", "refresh-0", time.Now().Add(time.Hour)))

	resp, err := h.controller.MakeAuthenticatedRequest(context.Background(), "/notes/1", "", nil)
	require.NoError(t, err)

	var decoded struct {
		ID int `json:"id"`
	}
	require.NoError(t, resp.DecodeJSON(&decoded))
	assert.Equal(t, 1, decoded.ID)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/notes/1", got.Endpoint)
	assert.Equal(t, "access-0", gotBearer)
}
