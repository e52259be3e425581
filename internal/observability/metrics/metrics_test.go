package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestChatMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveRequest("message", "ok")
	m.ObserveRequest("message", "ok")
	m.ObserveRequest("report", "error")
	m.ObserveProviderCall("perplexity", "error", 0.4)
	m.ObserveProviderCall("openai", "ok", 1.2)
	m.ObserveDegraded("deep_search_unavailable")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("message", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("report", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("perplexity", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degradedTotal.WithLabelValues("deep_search_unavailable")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.providerLatency))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *ChatMetrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("message", "ok")
		m.ObserveProviderCall("openai", "ok", 1)
		m.ObserveDegraded("x")
	})
}
