package server

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/chatboat/chatboat/pkg/model"
	"github.com/chatboat/chatboat/pkg/protocol"
	"github.com/chatboat/chatboat/pkg/transport"
)

// State is a connection handler's lifecycle position.
type State int

const (
	StateHandshaking State = iota // waiting for the Join message
	StateActive                   // joined, relaying messages
	StateClosing                  // deregistering and releasing the connection
	StateClosed                   // terminal
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// event is a handler-internal occurrence driving state transitions.
type event int

const (
	eventJoined            event = iota // handshake succeeded
	eventJoinRejected                   // name taken, invalid, or store failure
	eventLeave                          // client sent Leave
	eventTransportError                 // read failed: EOF, closed, or I/O error
	eventProtocolViolation              // malformed frame or out-of-sequence message
	eventClosed                         // connection released
)

// transition is the pure state machine: given a state and an event it
// returns the next state. Unmatched pairs hold the current state.
func transition(s State, ev event) State {
	switch s {
	case StateHandshaking:
		switch ev {
		case eventJoined:
			return StateActive
		case eventJoinRejected, eventTransportError, eventProtocolViolation, eventLeave:
			return StateClosing
		}
	case StateActive:
		switch ev {
		case eventLeave, eventTransportError, eventProtocolViolation:
			return StateClosing
		}
	case StateClosing:
		if ev == eventClosed {
			return StateClosed
		}
	}
	return s
}

// handler owns one accepted connection: the read/decode/dispatch loop and
// the session lifecycle around it.
type handler struct {
	srv   *Server
	t     transport.Transport
	state State
	sess  *Session
	log   *slog.Logger
}

func newHandler(srv *Server, t transport.Transport) *handler {
	return &handler{
		srv:   srv,
		t:     t,
		state: StateHandshaking,
		log:   slog.Default(),
	}
}

// run drives the handler to the closed state. Errors on this connection end
// here; they never propagate to the server or other sessions.
func (h *handler) run() {
	h.srv.track(h)
	defer h.srv.untrack(h)

	h.handshake()
	if h.state == StateActive {
		h.active()
	}
	h.closeDown()
}

// handshake waits for the Join message and registers the session. Anything
// else gets one Error reply and the closing transition.
func (h *handler) handshake() {
	msg, err := h.t.Receive()
	if err != nil {
		if isDecodeErr(err) {
			h.srv.metrics.DecodeErrors.Add(1)
			h.refuse("malformed join message")
			h.apply(eventProtocolViolation)
			return
		}
		h.apply(eventTransportError)
		return
	}

	join, ok := msg.(*protocol.Join)
	if !ok {
		h.refuse("first message must be join")
		h.apply(eventProtocolViolation)
		return
	}
	if err := model.ValidateName(join.Name); err != nil {
		h.srv.metrics.JoinsRejected.Add(1)
		h.refuse("invalid name: " + err.Error())
		h.apply(eventJoinRejected)
		return
	}

	sess, err := h.srv.reg.Join(join.Name)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			h.srv.metrics.JoinsRejected.Add(1)
			h.refuse("name taken: " + join.Name)
		} else {
			h.log.Error("join failed", "name", join.Name, "err", err)
			h.refuse("internal error")
		}
		h.apply(eventJoinRejected)
		return
	}

	h.sess = sess
	h.log = h.log.With("session", sess.ID, "name", sess.Name)
	go sess.writeLoop(h.t)

	h.apply(eventJoined)
	h.srv.metrics.ActiveSessions.Add(1)
	h.log.Info("client joined")

	h.srv.disp.Deliver(sess.Name, &protocol.Presence{Name: sess.Name, Online: true}, true)
}

// active receives until something forces the closing transition.
func (h *handler) active() {
	for h.state == StateActive {
		msg, err := h.t.Receive()
		if err != nil {
			h.apply(h.receiveFailed(err))
			return
		}

		switch m := msg.(type) {
		case *protocol.Chat:
			// Stamp the sender; clients do not get their own echo.
			h.srv.disp.Deliver(h.sess.Name, &protocol.Chat{From: h.sess.Name, Body: m.Body}, true)
			h.srv.metrics.ChatRelayed.Add(1)
		case *protocol.Leave:
			h.log.Debug("client leaving")
			h.apply(eventLeave)
		default:
			// Well-formed but out of sequence: a second Join, or a
			// server-only message from a client.
			h.refuse("unexpected " + msg.Tag().String() + " message")
			h.apply(eventProtocolViolation)
		}
	}
}

// receiveFailed classifies a read failure. Decode errors are protocol
// violations and get a best-effort Error reply; everything else ends the
// connection quietly.
func (h *handler) receiveFailed(err error) event {
	switch {
	case isDecodeErr(err):
		h.srv.metrics.DecodeErrors.Add(1)
		h.log.Warn("protocol violation", "err", err)
		h.refuse("malformed frame")
		return eventProtocolViolation
	case errors.Is(err, io.EOF), errors.Is(err, transport.ErrClosed):
		h.log.Debug("connection closed by peer")
		return eventTransportError
	default:
		h.log.Warn("read error", "err", err)
		return eventTransportError
	}
}

// closeDown performs the closing transition: deregister, announce the
// departure, flush, and release the connection.
func (h *handler) closeDown() {
	if h.sess != nil {
		h.srv.reg.Leave(h.sess.Name)
		h.srv.disp.Deliver(h.sess.Name, &protocol.Presence{Name: h.sess.Name, Online: false}, true)

		h.sess.close()
		select {
		case <-h.sess.writerDone:
		case <-time.After(closeFlushTimeout):
		}

		h.srv.metrics.ActiveSessions.Add(-1)
		h.log.Info("client disconnected")
	}

	_ = h.t.Close()
	h.apply(eventClosed)
	h.srv.metrics.Disconnects.Add(1)
}

func (h *handler) apply(ev event) {
	h.state = transition(h.state, ev)
}

// refuse sends one Error reply best-effort; the connection is going away.
func (h *handler) refuse(reason string) {
	_ = h.t.Send(&protocol.Error{Reason: reason})
}

func isDecodeErr(err error) bool {
	return errors.Is(err, protocol.ErrMalformed) || errors.Is(err, protocol.ErrFrameTooLarge)
}
