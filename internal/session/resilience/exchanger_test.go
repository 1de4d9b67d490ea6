package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiongate/internal/session/domain"
)

type stubExchanger struct {
	calls int
	err   error
}

func (s *stubExchanger) Refresh(context.Context, string) (domain.TokenPair, error) {
	s.calls++
	if s.err != nil {
		return domain.TokenPair{}, s.err
	}
	return domain.TokenPair{
		Access:  domain.AccessToken{Value: "access"},
		Refresh: domain.RefreshToken{Value: "refresh"},
	}, nil
}

func (s *stubExchanger) Login(ctx context.Context, _, _ string) (domain.TokenPair, error) {
	return s.Refresh(ctx, "")
}

func (s *stubExchanger) Logout(context.Context, string) error {
	s.calls++
	return s.err
}

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker("auth", CircuitBreakerConfig{
		ErrorThreshold:   2,
		Timeout:          time.Second,
		SuccessThreshold: 1,
	})
	cb.now = func() time.Time { return *clock }
	cb.lastStateChange = *clock
	return cb
}

func TestTransientFailuresOpenCircuit(t *testing.T) {
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubExchanger{err: &domain.Error{Kind: domain.KindTransient, StatusCode: http.StatusServiceUnavailable}}
	ex := NewExchanger(stub, newTestBreaker(&clock))

	for i := 0; i < 2; i++ {
		_, err := ex.Refresh(context.Background(), "r")
		require.ErrorIs(t, err, domain.ErrTransient)
	}
	assert.Equal(t, StateOpen, ex.breaker.GetState())

	_, err := ex.Refresh(context.Background(), "r")

	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, stub.calls, "open circuit must not reach the server")
}

func TestCircuitRecoversAfterTimeout(t *testing.T) {
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubExchanger{err: errors.New("connection refused")}
	ex := NewExchanger(stub, newTestBreaker(&clock))

	_, _ = ex.Refresh(context.Background(), "r")
	_, _ = ex.Refresh(context.Background(), "r")
	require.Equal(t, StateOpen, ex.breaker.GetState())

	clock = clock.Add(2 * time.Second)
	stub.err = nil

	pair, err := ex.Refresh(context.Background(), "r")

	require.NoError(t, err)
	assert.Equal(t, "access", pair.Access.Value)
	assert.Equal(t, StateClosed, ex.breaker.GetState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubExchanger{err: errors.New("connection refused")}
	ex := NewExchanger(stub, newTestBreaker(&clock))

	_, _ = ex.Refresh(context.Background(), "r")
	_, _ = ex.Refresh(context.Background(), "r")
	clock = clock.Add(2 * time.Second)

	_, err := ex.Refresh(context.Background(), "r")

	assert.Error(t, err)
	assert.Equal(t, StateOpen, ex.breaker.GetState())
	assert.Equal(t, 3, stub.calls)
}

func TestTerminalFailuresDoNotTrip(t *testing.T) {
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubExchanger{err: &domain.Error{Kind: domain.KindSessionExpired, StatusCode: http.StatusUnauthorized}}
	ex := NewExchanger(stub, newTestBreaker(&clock))

	for i := 0; i < 5; i++ {
		_, err := ex.Refresh(context.Background(), "r")
		assert.ErrorIs(t, err, domain.ErrSessionExpired)
	}

	assert.Equal(t, StateClosed, ex.breaker.GetState())
	assert.Equal(t, 5, stub.calls)
}

func TestLogoutThroughBreaker(t *testing.T) {
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	stub := &stubExchanger{}
	ex := NewExchanger(stub, newTestBreaker(&clock))

	require.NoError(t, ex.Logout(context.Background(), "r"))
	assert.Equal(t, 1, stub.calls)
}

func TestDefaultConfigApplied(t *testing.T) {
	cb := NewCircuitBreaker("auth", CircuitBreakerConfig{})

	assert.Equal(t, DefaultCircuitBreakerConfig(), cb.config)
	assert.Equal(t, "closed", cb.GetState().String())
}
