// Package protocol defines the chat message variants and their binary framing.
//
// A frame is [length:uint32 BE][tag:byte][payload]. The length covers the tag
// and payload. Text fields inside a payload are length-prefixed UTF-8
// ([len:uint16 BE][bytes]). Encoding and decoding are pure; see the transport
// package for I/O.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// MaxFrame is the maximum allowed frame body (tag + payload) in bytes.
	// Frames declaring more than this are rejected before the payload is read,
	// bounding memory against a hostile or buggy peer.
	MaxFrame = 65536

	// MaxText is the maximum byte length of a single text field.
	MaxText = 65535

	// frameHeader is the size of the length prefix.
	frameHeader = 4
)

var (
	// ErrMalformed reports a frame that cannot be decoded: unknown tag,
	// truncated payload, trailing bytes, or invalid UTF-8 in a text field.
	ErrMalformed = errors.New("protocol: malformed frame")

	// ErrFrameTooLarge reports a frame or field exceeding the fixed maximum.
	ErrFrameTooLarge = errors.New("protocol: frame too large")
)

// Tag identifies a message variant on the wire.
type Tag byte

const (
	TagJoin     Tag = 0x01
	TagLeave    Tag = 0x02
	TagChat     Tag = 0x03
	TagPresence Tag = 0x04
	TagError    Tag = 0x05
)

func (t Tag) String() string {
	switch t {
	case TagJoin:
		return "join"
	case TagLeave:
		return "leave"
	case TagChat:
		return "chat"
	case TagPresence:
		return "presence"
	case TagError:
		return "error"
	}
	return fmt.Sprintf("tag(0x%02x)", byte(t))
}

// Message is one typed, immutable unit of the wire protocol.
type Message interface {
	Tag() Tag
}

// Join is the handshake request naming the sender. It must be the first and
// only the first message a client sends.
type Join struct {
	Name string
}

// Leave announces an orderly disconnect.
type Leave struct{}

// Chat carries one chat line. Clients send it with From empty; the server
// stamps the sender's identity before fan-out.
type Chat struct {
	From string
	Body string
}

// Presence notifies clients that a peer came online or went offline.
// Server to client only.
type Presence struct {
	Name   string
	Online bool
}

// Error reports a failure to the peer, usually right before disconnect.
type Error struct {
	Reason string
}

func (*Join) Tag() Tag     { return TagJoin }
func (*Leave) Tag() Tag    { return TagLeave }
func (*Chat) Tag() Tag     { return TagChat }
func (*Presence) Tag() Tag { return TagPresence }
func (*Error) Tag() Tag    { return TagError }

// Encode serializes a message into a complete frame, length prefix included.
// An oversized message fails with ErrFrameTooLarge before any byte is
// produced.
func Encode(m Message) ([]byte, error) {
	body, err := encodeBody(m)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, frameHeader+len(body))
	binary.BigEndian.PutUint32(frame[:frameHeader], uint32(len(body)))
	copy(frame[frameHeader:], body)
	return frame, nil
}

// Decode parses a complete frame as produced by Encode. The declared length
// must match the actual body length exactly; anything else is ErrMalformed.
func Decode(frame []byte) (Message, error) {
	if len(frame) < frameHeader+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(frame))
	}
	declared := binary.BigEndian.Uint32(frame[:frameHeader])
	if declared > MaxFrame {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, declared)
	}
	if int(declared) != len(frame)-frameHeader {
		return nil, fmt.Errorf("%w: declared %d bytes, got %d", ErrMalformed, declared, len(frame)-frameHeader)
	}
	return decodeBody(frame[frameHeader:])
}

// WriteMessage encodes m and writes the frame to w in a single Write call, so
// callers that serialize on w never interleave partial frames.
func WriteMessage(w io.Writer, m Message) error {
	frame, err := Encode(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("protocol: write frame: %w", err)
	}
	return nil
}

// ReadMessage reads exactly one frame from r and decodes it. It blocks until
// a full frame is available; truncation surfaces as an I/O error.
func ReadMessage(r io.Reader) (Message, error) {
	var lenBuf [frameHeader]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrame {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, length)
	}
	if length == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("protocol: read body: %w", err)
	}
	return decodeBody(body)
}

func encodeBody(m Message) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(m.Tag()))

	var err error
	switch v := m.(type) {
	case *Join:
		err = appendString(&buf, v.Name)
	case *Leave:
	case *Chat:
		if err = appendString(&buf, v.From); err == nil {
			err = appendString(&buf, v.Body)
		}
	case *Presence:
		if err = appendString(&buf, v.Name); err == nil {
			if v.Online {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	case *Error:
		err = appendString(&buf, v.Reason)
	default:
		return nil, fmt.Errorf("%w: unsupported message %T", ErrMalformed, m)
	}
	if err != nil {
		return nil, err
	}
	if buf.Len() > MaxFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, buf.Len())
	}
	return buf.Bytes(), nil
}

func decodeBody(body []byte) (Message, error) {
	tag := Tag(body[0])
	p := body[1:]

	var (
		msg Message
		err error
	)
	switch tag {
	case TagJoin:
		var name string
		if name, p, err = readString(p); err == nil {
			msg = &Join{Name: name}
		}
	case TagLeave:
		msg = &Leave{}
	case TagChat:
		var from, text string
		if from, p, err = readString(p); err == nil {
			if text, p, err = readString(p); err == nil {
				msg = &Chat{From: from, Body: text}
			}
		}
	case TagPresence:
		var name string
		if name, p, err = readString(p); err == nil {
			if len(p) < 1 || p[0] > 1 {
				err = fmt.Errorf("%w: bad presence flag", ErrMalformed)
			} else {
				msg = &Presence{Name: name, Online: p[0] == 1}
				p = p[1:]
			}
		}
	case TagError:
		var reason string
		if reason, p, err = readString(p); err == nil {
			msg = &Error{Reason: reason}
		}
	default:
		return nil, fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformed, byte(tag))
	}
	if err != nil {
		return nil, err
	}
	if len(p) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %s", ErrMalformed, len(p), tag)
	}
	return msg, nil
}

func appendString(buf *bytes.Buffer, s string) error {
	if len(s) > MaxText {
		return fmt.Errorf("%w: text field of %d bytes", ErrFrameTooLarge, len(s))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
	return nil
}

func readString(p []byte) (string, []byte, error) {
	if len(p) < 2 {
		return "", nil, fmt.Errorf("%w: short text prefix", ErrMalformed)
	}
	n := int(binary.BigEndian.Uint16(p[:2]))
	p = p[2:]
	if len(p) < n {
		return "", nil, fmt.Errorf("%w: text field truncated", ErrMalformed)
	}
	s := p[:n]
	if !utf8.Valid(s) {
		return "", nil, fmt.Errorf("%w: text field is not valid UTF-8", ErrMalformed)
	}
	return string(s), p[n:], nil
}
