package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StartMetricsHTTP starts a lightweight HTTP server exposing /metrics in
// Prometheus text exposition format, plus /healthz. It runs in the background
// and closes when the server context is cancelled.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return // metrics endpoint disabled
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
}

// handleMetrics writes all counters in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.metrics

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Write errors to an http.ResponseWriter are non-actionable.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}

	_, _ = fmt.Fprintf(w, "# HELP chatboat_uptime_seconds Server uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE chatboat_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "chatboat_uptime_seconds %f\n", time.Since(m.startTime).Seconds())

	write("chatboat_sessions_active", "Sessions currently past the join handshake.", "gauge",
		m.ActiveSessions.Load())
	write("chatboat_connections_total", "Lifetime connections accepted.", "counter",
		m.TotalConnections.Load())
	write("chatboat_joins_rejected_total", "Joins refused (name taken or invalid).", "counter",
		m.JoinsRejected.Load())
	write("chatboat_chat_relayed_total", "Chat messages fanned out.", "counter",
		m.ChatRelayed.Load())
	write("chatboat_backpressure_drops_total", "Frames dropped on full recipient outboxes.", "counter",
		m.BackpressureDrops.Load())
	write("chatboat_decode_errors_total", "Malformed or oversized frames received.", "counter",
		m.DecodeErrors.Load())
	write("chatboat_disconnects_total", "Handlers that reached the closed state.", "counter",
		m.Disconnects.Load())
}
