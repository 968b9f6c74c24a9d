package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatboat/chatboat/pkg/protocol"
)

// WebSocket is a Transport over a websocket connection. Each binary
// websocket message carries exactly one protocol frame.
type WebSocket struct {
	conn   *websocket.Conn
	wmu    sync.Mutex // gorilla allows at most one concurrent writer
	closed atomic.Bool
}

var _ Transport = (*WebSocket)(nil)

// NewWebSocket wraps an upgraded or dialed websocket connection.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	conn.SetReadLimit(protocol.MaxFrame + 8)
	return &WebSocket{conn: conn}
}

// DialWebSocket connects to a chat server's websocket endpoint,
// e.g. "ws://host:port/ws".
func DialWebSocket(url string) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial websocket %s: %w", url, err)
	}
	return NewWebSocket(conn), nil
}

func (w *WebSocket) Send(m protocol.Message) error {
	if w.closed.Load() {
		return ErrClosed
	}
	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	w.wmu.Lock()
	defer w.wmu.Unlock()
	if w.closed.Load() {
		return ErrClosed
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("transport: websocket write: %w", err)
	}
	return nil
}

func (w *WebSocket) Receive() (protocol.Message, error) {
	if w.closed.Load() {
		return nil, ErrClosed
	}
	typ, data, err := w.conn.ReadMessage()
	if err != nil {
		if w.closed.Load() {
			return nil, ErrClosed
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("transport: websocket read: %w", err)
	}
	if typ != websocket.BinaryMessage {
		return nil, fmt.Errorf("%w: non-binary websocket message", protocol.ErrMalformed)
	}
	return protocol.Decode(data)
}

func (w *WebSocket) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	// Best-effort close handshake before dropping the connection.
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.conn.Close()
}

// RemoteAddr reports the peer address, for logs.
func (w *WebSocket) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
