// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes the Prometheus collectors of the gateway.

All collectors are registered on an explicit [prometheus.Registerer] instead of
the global default, so tests can build an isolated set per case.

Collected series:

  - finscope_signin_total{provider,outcome}
  - finscope_backend_requests_total{method,outcome}
  - finscope_backend_request_duration_seconds{method}
  - finscope_session_teardown_total{reason}
  - finscope_http_requests_total{method,status}
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finscope"

// Sign-in outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Backend call outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeNoToken        = "no_token"
	OutcomeUnauthorized   = "unauthorized"
	OutcomeRejected       = "rejected"
	OutcomeUpstreamFailed = "upstream_error"
)

// Metrics holds every collector of the gateway.
type Metrics struct {
	registry *prometheus.Registry

	signIns         *prometheus.CounterVec
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	teardowns       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New creates a registry with the process and Go collectors plus the gateway series.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		signIns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signin_total",
			Help:      "Sign-in attempts by provider and outcome",
		}, []string{"provider", "outcome"}),

		backendRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Calls issued through the request authorizer by outcome",
		}, []string{"method", "outcome"}),

		backendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Round-trip duration of backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		teardowns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_teardown_total",
			Help:      "Sessions destroyed by reason",
		}, []string{"reason"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Gateway HTTP requests by method and status",
		}, []string{"method", "status"}),
	}
}

// SignIn records a sign-in attempt.
func (m *Metrics) SignIn(provider, outcome string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(provider, outcome).Inc()
}

// BackendRequest records one authorizer call and its duration.
func (m *Metrics) BackendRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(method, outcome).Inc()
	m.backendLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SessionTeardown records a destroyed session ("logout", "unauthorized", "account_deleted").
func (m *Metrics) SessionTeardown(reason string) {
	if m == nil {
		return
	}
	m.teardowns.WithLabelValues(reason).Inc()
}

// HTTPRequest records a finished gateway request.
func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
