package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatboat/chatboat/pkg/protocol"
	"github.com/chatboat/chatboat/pkg/transport"
)

// closeFlushTimeout bounds how long a closing handler waits for the writer
// to flush queued frames before the transport is torn down regardless.
const closeFlushTimeout = time.Second

// Session is the live binding between an identity and a connection. The
// registry owns it for lookup; the connection itself stays with the handler.
type Session struct {
	ID   uuid.UUID
	Name string

	outbox     chan protocol.Message
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

func newSession(name string, outboxSize int) *Session {
	return &Session{
		ID:         uuid.New(),
		Name:       name,
		outbox:     make(chan protocol.Message, outboxSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// enqueue offers a message to the outbound queue without blocking. It
// reports false when the session is gone or its queue is full; the caller
// decides what a drop means.
func (s *Session) enqueue(m protocol.Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbox <- m:
		return true
	default:
		return false
	}
}

// close stops the writer. Idempotent.
func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// stopped reports whether the session has been closed.
func (s *Session) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// writeLoop drains the outbox to the transport. It is the session's single
// writer, which keeps frames from interleaving. On close it flushes whatever
// is already queued, then returns.
func (s *Session) writeLoop(t transport.Transport) {
	defer close(s.writerDone)
	for {
		select {
		case <-s.done:
			s.flush(t)
			return
		case m := <-s.outbox:
			if err := t.Send(m); err != nil {
				slog.Debug("session write failed", "session", s.ID, "name", s.Name, "err", err)
				return
			}
		}
	}
}

func (s *Session) flush(t transport.Transport) {
	for {
		select {
		case m := <-s.outbox:
			if err := t.Send(m); err != nil {
				return
			}
		default:
			return
		}
	}
}
