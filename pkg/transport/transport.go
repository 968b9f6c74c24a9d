// Package transport wraps raw endpoints with the protocol framing, exposing
// one-message send/receive operations used identically by client and server.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/chatboat/chatboat/pkg/protocol"
)

// ErrClosed reports use of a transport after Close, including receives that
// were blocked when the endpoint went away.
var ErrClosed = errors.New("transport: connection closed")

// Transport moves whole protocol messages over one connection.
//
// Send serializes concurrent callers internally and writes each frame
// atomically. Receive blocks the calling goroutine until one full frame is
// available; it is intended for a single reading goroutine. Close releases
// the underlying endpoint and is idempotent; a pending or later Receive
// fails with ErrClosed.
type Transport interface {
	Send(protocol.Message) error
	Receive() (protocol.Message, error)
	Close() error
}

// Stream is a Transport over a byte-stream connection.
type Stream struct {
	conn   net.Conn
	br     *bufio.Reader
	wmu    sync.Mutex
	closed atomic.Bool
}

var _ Transport = (*Stream)(nil)

// NewStream wraps an accepted or dialed connection.
func NewStream(conn net.Conn) *Stream {
	return &Stream{conn: conn, br: bufio.NewReader(conn)}
}

// Dial connects to a chat server at addr over TCP.
func Dial(addr string) (*Stream, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return NewStream(conn), nil
}

func (s *Stream) Send(m protocol.Message) error {
	if s.closed.Load() {
		return ErrClosed
	}
	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

func (s *Stream) Receive() (protocol.Message, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	m, err := protocol.ReadMessage(s.br)
	if err != nil {
		if s.closed.Load() {
			return nil, ErrClosed
		}
		if errors.Is(err, io.EOF) ||
			errors.Is(err, protocol.ErrMalformed) ||
			errors.Is(err, protocol.ErrFrameTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	return m, nil
}

func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}

// RemoteAddr reports the peer address, for logs.
func (s *Stream) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}
