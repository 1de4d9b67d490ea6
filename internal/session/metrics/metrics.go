// Package metrics содержит счетчики Prometheus для координатора сессии.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sessiongate"

// Исходы обновления токенов.
const (
	OutcomeSuccess   = "success"
	OutcomeTerminal  = "terminal"
	OutcomeTransient = "transient"
	OutcomeDiscarded = "discarded"
)

// Metrics собирает счетчики сессии. Нулевой указатель допустим: методы ничего не делают.
type Metrics struct {
	gatherer      prometheus.Gatherer
	refreshes     *prometheus.CounterVec
	refreshJoins  prometheus.Counter
	retries       prometheus.Counter
	invalidations prometheus.Counter
	requests      *prometheus.CounterVec
}

// New регистрирует счетчики в собственном реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry регистрирует счетчики в reg и отдает их через gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Token refresh exchanges by outcome.",
		}, []string{"outcome"}),
		refreshJoins: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_joins_total",
			Help:      "Callers that joined an in-flight refresh instead of starting one.",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Requests retried after the access token was rejected.",
		}),
		invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_invalidations_total",
			Help:      "Sessions moved to the invalid state.",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authenticated_requests_total",
			Help:      "Authenticated requests by result class.",
		}, []string{"result"}),
	}
}

func (m *Metrics) RefreshCompleted(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RefreshJoined() {
	if m == nil {
		return
	}
	m.refreshJoins.Inc()
}

func (m *Metrics) RequestRetried() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) SessionInvalidated() {
	if m == nil {
		return
	}
	m.invalidations.Inc()
}

func (m *Metrics) RequestCompleted(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}

// Handler отдает метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Refreshes возвращает счетчик обновлений для исхода. Используется в тестах.
func (m *Metrics) Refreshes(outcome string) prometheus.Counter {
	return m.refreshes.WithLabelValues(outcome)
}

// RefreshJoins возвращает счетчик присоединений к обновлению.
func (m *Metrics) RefreshJoins() prometheus.Counter {
	return m.refreshJoins
}

// Retries возвращает счетчик повторов.
func (m *Metrics) Retries() prometheus.Counter {
	return m.retries
}

// Invalidations возвращает счетчик инвалидаций.
func (m *Metrics) Invalidations() prometheus.Counter {
	return m.invalidations
}
