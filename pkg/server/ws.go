package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatboat/chatboat/pkg/transport"
)

var upgrader = websocket.Upgrader{
	// The chat protocol carries its own join handshake; browser clients on
	// any origin are accepted here like any TCP peer.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// startWS binds the optional websocket listener. Each upgraded connection
// goes through the same handler path as a TCP connection.
func (s *Server) startWS() error {
	if s.cfg.WSAddr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.WSAddr)
	if err != nil {
		return fmt.Errorf("server: listen websocket %s: %w", s.cfg.WSAddr, err)
	}
	s.wsLn = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		s.serve(transport.NewWebSocket(conn))
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("websocket listener up", "addr", ln.Addr())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("websocket listener error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
	return nil
}
