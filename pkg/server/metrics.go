package server

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	TotalConnections  atomic.Int64 // lifetime connections accepted (TCP + websocket)
	ActiveSessions    atomic.Int64 // sessions currently past the join handshake
	JoinsRejected     atomic.Int64 // joins refused (name taken or invalid)
	ChatRelayed       atomic.Int64 // chat messages fanned out
	BackpressureDrops atomic.Int64 // frames dropped because a recipient outbox was full
	DecodeErrors      atomic.Int64 // malformed or oversized frames received
	Disconnects       atomic.Int64 // handlers that reached the closed state
}

// NewMetrics creates a Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// MetricsSnapshot is a point-in-time view of all counters.
type MetricsSnapshot struct {
	Uptime            string `json:"uptime"`
	ActiveSessions    int64  `json:"active_sessions"`
	TotalConnections  int64  `json:"total_connections"`
	JoinsRejected     int64  `json:"joins_rejected"`
	ChatRelayed       int64  `json:"chat_relayed"`
	BackpressureDrops int64  `json:"backpressure_drops"`
	DecodeErrors      int64  `json:"decode_errors"`
	Disconnects       int64  `json:"disconnects"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Uptime:            time.Since(m.startTime).Truncate(time.Second).String(),
		ActiveSessions:    m.ActiveSessions.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		JoinsRejected:     m.JoinsRejected.Load(),
		ChatRelayed:       m.ChatRelayed.Load(),
		BackpressureDrops: m.BackpressureDrops.Load(),
		DecodeErrors:      m.DecodeErrors.Load(),
		Disconnects:       m.Disconnects.Load(),
	}
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"sessions", s.ActiveSessions,
		"total_connections", s.TotalConnections,
		"chat_relayed", s.ChatRelayed,
		"backpressure_drops", s.BackpressureDrops,
		"decode_errors", s.DecodeErrors,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval until
// done is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
