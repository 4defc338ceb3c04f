package client

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики клиента. Нулевой указатель допустим:
// все методы становятся no-op.
type Metrics struct {
	requests  *prometheus.CounterVec
	retries   prometheus.Counter
	refreshes *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics создаёт и регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "HTTP attempts issued by the API client, by method and response code.",
		}, []string{"method", "code"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "social",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Attempts re-issued after a retryable failure.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social",
			Subsystem: "client",
			Name:      "refresh_total",
			Help:      "Access token refresh operations, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "social",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of single HTTP attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.retries, m.refreshes, m.duration)
	}

	return m
}

func (m *Metrics) observeAttempt(method string, status int, dur time.Duration) {
	if m == nil {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}

	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(dur.Seconds())
}

func (m *Metrics) incRetry() {
	if m == nil {
		return
	}

	m.retries.Inc()
}

func (m *Metrics) incRefresh(result string) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(result).Inc()
}
