package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.TotalConnections.Add(4)
	m.ActiveSessions.Add(2)
	m.ChatRelayed.Add(7)
	m.BackpressureDrops.Add(1)

	s := m.Snapshot()
	assert.Equal(t, int64(4), s.TotalConnections)
	assert.Equal(t, int64(2), s.ActiveSessions)
	assert.Equal(t, int64(7), s.ChatRelayed)
	assert.Equal(t, int64(1), s.BackpressureDrops)
	assert.Equal(t, int64(0), s.DecodeErrors)
}

func TestMetricsHandlerExposition(t *testing.T) {
	srv := newTestServer(t)
	srv.metrics.TotalConnections.Add(3)
	srv.metrics.DecodeErrors.Add(1)

	rec := httptest.NewRecorder()
	srv.handleMetrics(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "# TYPE chatboat_connections_total counter")
	assert.Contains(t, body, "chatboat_connections_total 3")
	assert.Contains(t, body, "chatboat_decode_errors_total 1")
	assert.Contains(t, body, "chatboat_uptime_seconds")
}
