package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	// UpstreamAttempts counts outbound provider request attempts
	UpstreamAttempts *prometheus.CounterVec
	// UpstreamLatency tracks outbound provider request latency
	UpstreamLatency *prometheus.HistogramVec
	// FallbackTotal counts responses served by the mock responder
	FallbackTotal *prometheus.CounterVec
	// MappingRefreshes counts identifier-mapping refresh outcomes
	MappingRefreshes *prometheus.CounterVec
	// OAuthEvents counts OAuth lifecycle transitions
	OAuthEvents *prometheus.CounterVec
	// RequestLatency tracks facade HTTP request latency
	RequestLatency *prometheus.HistogramVec
	// HTTPRequestsTotal total facade HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestsInFlight current facade HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// registry is the custom registry for this metrics instance
	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		UpstreamAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_attempts_total",
				Help:      "Total outbound provider request attempts",
			},
			[]string{"provider", "endpoint", "outcome"},
		),
		UpstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_latency_seconds",
				Help:      "Outbound provider request latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"provider", "endpoint"},
		),
		FallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallback_responses_total",
				Help:      "Total responses served by the mock fallback responder",
			},
			[]string{"provider", "capability", "reason"},
		),
		MappingRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mapping_refreshes_total",
				Help:      "Total identifier mapping refresh attempts",
			},
			[]string{"outcome"},
		),
		OAuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oauth_events_total",
				Help:      "Total OAuth lifecycle events",
			},
			[]string{"provider", "event"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "Facade HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total facade HTTP requests",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current facade HTTP requests being processed",
			},
		),
	}

	registry.MustRegister(
		m.UpstreamAttempts,
		m.UpstreamLatency,
		m.FallbackTotal,
		m.MappingRefreshes,
		m.OAuthEvents,
		m.RequestLatency,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
	)

	return m
}

// Handler returns an http.Handler serving the custom registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordUpstreamAttempt records one outbound attempt with its outcome
func (m *Metrics) RecordUpstreamAttempt(provider, endpoint, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamAttempts.WithLabelValues(provider, endpoint, outcome).Inc()
}

// RecordUpstreamLatency records one outbound request duration
func (m *Metrics) RecordUpstreamLatency(provider, endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamLatency.WithLabelValues(provider, endpoint).Observe(seconds)
}

// RecordFallback records a degraded response
func (m *Metrics) RecordFallback(provider, capability, reason string) {
	if m == nil {
		return
	}
	m.FallbackTotal.WithLabelValues(provider, capability, reason).Inc()
}

// RecordMappingRefresh records a mapping refresh outcome
func (m *Metrics) RecordMappingRefresh(outcome string) {
	if m == nil {
		return
	}
	m.MappingRefreshes.WithLabelValues(outcome).Inc()
}

// RecordOAuthEvent records an OAuth lifecycle event
func (m *Metrics) RecordOAuthEvent(provider, event string) {
	if m == nil {
		return
	}
	m.OAuthEvents.WithLabelValues(provider, event).Inc()
}

// RecordRequestLatency records facade request latency
func (m *Metrics) RecordRequestLatency(endpoint, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(endpoint, method, status).Observe(seconds)
}

// RecordHTTPRequest records one facade request
func (m *Metrics) RecordHTTPRequest(endpoint, method, status string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// IncHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}
