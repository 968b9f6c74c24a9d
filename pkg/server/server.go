// Package server implements the Chat Boat server: the accept loops, the
// session registry, broadcast fan-out, and per-connection handling.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/chatboat/chatboat/pkg/datastore"
	"github.com/chatboat/chatboat/pkg/transport"
)

// Dependencies holds external collaborators for the server. The server
// assumes ownership of Users and closes it on shutdown.
type Dependencies struct {
	Users datastore.UserStore
}

// Server accepts connections and spawns one handler per connection.
type Server struct {
	cfg     Config
	reg     *Registry
	disp    *Dispatcher
	metrics *Metrics
	users   datastore.UserStore

	ln   net.Listener
	wsLn net.Listener

	ctx    context.Context
	cancel context.CancelFunc

	handlers sync.WaitGroup
	hmu      sync.Mutex
	open     map[*handler]struct{}
}

// New creates a Server. Call Start (or Run) to begin accepting.
func New(cfg Config, deps Dependencies) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	reg := NewRegistry(deps.Users, cfg.OutboxSize)
	metrics := NewMetrics()
	return &Server{
		cfg:     cfg,
		reg:     reg,
		disp:    NewDispatcher(reg, metrics),
		metrics: metrics,
		users:   deps.Users,
		ctx:     ctx,
		cancel:  cancel,
		open:    make(map[*handler]struct{}),
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry { return s.reg }

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Addr returns the bound TCP listener address, for tests and logs.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.cfg.ListenAddr
	}
	return s.ln.Addr().String()
}

// WSAddr returns the bound websocket listener address, or "" when disabled.
func (s *Server) WSAddr() string {
	if s.wsLn == nil {
		return ""
	}
	return s.wsLn.Addr().String()
}

// Start binds the listeners and begins accepting. Failure to bind is the
// only fatal startup condition.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	slog.Info("chat listener up", "addr", ln.Addr())

	go s.acceptLoop()

	if err := s.startWS(); err != nil {
		_ = ln.Close()
		return err
	}
	s.StartMetricsHTTP()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				slog.Error("accept error", "err", err)
				continue
			}
		}
		s.serve(transport.NewStream(conn))
	}
}

// serve runs one handler for t in its own goroutine. Shared by the TCP and
// websocket paths.
func (s *Server) serve(t transport.Transport) {
	s.metrics.TotalConnections.Add(1)
	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()
		newHandler(s, t).run()
	}()
}

func (s *Server) track(h *handler) {
	s.hmu.Lock()
	s.open[h] = struct{}{}
	s.hmu.Unlock()
}

func (s *Server) untrack(h *handler) {
	s.hmu.Lock()
	delete(s.open, h)
	s.hmu.Unlock()
}

// openHandlers returns a snapshot of handlers that have not closed yet.
func (s *Server) openHandlers() []*handler {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	out := make([]*handler, 0, len(s.open))
	for h := range s.open {
		out = append(out, h)
	}
	return out
}
