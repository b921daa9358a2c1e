package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAll(t *testing.T) {
	m := NewMetrics("finbridge")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	// only the plain gauge is exported before any observation
	assert.True(t, names["finbridge_http_requests_in_flight"])
}

func TestRecordUpstreamAttempt(t *testing.T) {
	m := NewMetrics("finbridge")

	m.RecordUpstreamAttempt("edgar", "/submissions", "success")
	m.RecordUpstreamAttempt("edgar", "/submissions", "success")
	m.RecordUpstreamAttempt("edgar", "/submissions", "retry")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamAttempts.WithLabelValues("edgar", "/submissions", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamAttempts.WithLabelValues("edgar", "/submissions", "retry")))
}

func TestRecordFallback(t *testing.T) {
	m := NewMetrics("finbridge")

	m.RecordFallback("marketdata", "get_quote", "unreachable")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackTotal.WithLabelValues("marketdata", "get_quote", "unreachable")))
}

func TestRecordOAuthEvent(t *testing.T) {
	m := NewMetrics("finbridge")

	m.RecordOAuthEvent("linknet", "state_mismatch")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OAuthEvents.WithLabelValues("linknet", "state_mismatch")))
}

func TestUpstreamLatencyHistogram(t *testing.T) {
	m := NewMetrics("finbridge")

	m.RecordUpstreamLatency("edgar", "/submissions", 0.2)
	m.RecordUpstreamLatency("edgar", "/submissions", 0.4)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "finbridge_upstream_latency_seconds" {
			family = f
		}
	}
	require.NotNil(t, family)
	require.Len(t, family.GetMetric(), 1)

	histogram := family.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.InDelta(t, 0.6, histogram.GetSampleSum(), 1e-9)
}

func TestInFlightGauge(t *testing.T) {
	m := NewMetrics("finbridge")

	m.IncHTTPRequestsInFlight()
	m.IncHTTPRequestsInFlight()
	m.DecHTTPRequestsInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	m.RecordUpstreamAttempt("edgar", "/submissions", "success")
	m.RecordUpstreamLatency("edgar", "/submissions", 0.1)
	m.RecordFallback("edgar", "get_filings", "unreachable")
	m.RecordMappingRefresh("success")
	m.RecordOAuthEvent("linknet", "authorize")
	m.RecordRequestLatency("/health", "GET", "200", 0.01)
	m.RecordHTTPRequest("/health", "GET", "200")
	m.IncHTTPRequestsInFlight()
	m.DecHTTPRequestsInFlight()
}
