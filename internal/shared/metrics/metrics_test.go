package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Poll("system_stats", "started")
	m.Poll("system_stats", "started")
	m.Poll("system_stats", "discarded")
	m.GatewayRequest("list_user_rides", "ok", 20*time.Millisecond)
	m.Notification("error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("system_stats", "started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("system_stats", "discarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayRequests.WithLabelValues("list_user_rides", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Poll("x", "started")
		m.GatewayRequest("x", "ok", time.Second)
		m.Notification("info")
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Poll("available_rides", "skipped")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(),
		`cabconnect_client_scheduler_polls_total{outcome="skipped",scheduler="available_rides"} 1`))
}
