package server

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatboat/chatboat/pkg/protocol"
)

// Run starts the server and blocks until an interrupt or termination signal
// arrives, then shuts down.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	slog.Info("chat server running", "addr", s.Addr())
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-s.ctx.Done():
	}

	slog.Info("shutting down...")
	s.Shutdown()
	return nil
}

// Shutdown stops accepting, notifies active sessions, and drains handlers
// within the configured grace period. Handlers blocked in a receive are
// unblocked by closing their connections; whatever has not exited when the
// grace period ends is abandoned with its connection already closed.
func (s *Server) Shutdown() {
	s.cancel()
	if s.ln != nil {
		_ = s.ln.Close()
	}

	// Queue a shutdown notice for every joined session and stop its writer;
	// stopping flushes the queue, so the notice goes out before the
	// connection is torn down.
	sessions := s.reg.All()
	for _, sess := range sessions {
		sess.enqueue(&protocol.Error{Reason: "server shutting down"})
		sess.close()
	}
	flushDeadline := time.Now().Add(closeFlushTimeout)
	for _, sess := range sessions {
		select {
		case <-sess.writerDone:
		case <-time.After(time.Until(flushDeadline)):
		}
	}

	// Closing the connections makes every blocked receive fail, which forces
	// each handler (joined or still handshaking) through its closing
	// transition.
	for _, h := range s.openHandlers() {
		_ = h.t.Close()
	}

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("all handlers drained")
	case <-time.After(s.cfg.ShutdownGrace):
		slog.Warn("handlers still open after grace period", "open", len(s.openHandlers()))
	}

	if s.users != nil {
		if err := s.users.Close(); err != nil {
			slog.Error("close user store", "err", err)
		}
	}
}
