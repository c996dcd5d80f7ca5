// Package metrics holds the client's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cabconnect_client"

type Metrics struct {
	registry *prometheus.Registry

	polls           *prometheus.CounterVec
	gatewayRequests *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_polls_total",
			Help:      "Scheduler ticks by scheduler and outcome (started, skipped, delivered, failed, discarded).",
		}, []string{"scheduler", "outcome"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Gateway calls by operation and result (ok, domain, transport, unauthorized).",
		}, []string{"operation", "result"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Gateway round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User-visible notifications by level.",
		}, []string{"level"}),
	}
	m.registry.MustRegister(m.polls, m.gatewayRequests, m.gatewayLatency, m.notifications)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Poll implements the scheduler observer.
func (m *Metrics) Poll(scheduler, outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(scheduler, outcome).Inc()
}

func (m *Metrics) GatewayRequest(operation, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(operation, result).Inc()
	m.gatewayLatency.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *Metrics) Notification(level string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(level).Inc()
}
