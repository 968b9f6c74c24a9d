// Package client implements the line-oriented chat client shell. It owns no
// protocol logic beyond sending what the user types and rendering what the
// server pushes.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chatboat/chatboat/pkg/protocol"
	"github.com/chatboat/chatboat/pkg/transport"
)

// quitCommand ends the session from the input line.
const quitCommand = "/quit"

// Client is a thin REPL over one transport.
type Client struct {
	t    transport.Transport
	name string
	in   io.Reader
	out  io.Writer
}

// New creates a client that will join as name, reading lines from in and
// rendering to out.
func New(t transport.Transport, name string, in io.Reader, out io.Writer) *Client {
	return &Client{t: t, name: name, in: in, out: out}
}

// Run joins the chat and blocks until the server disconnects us or the user
// quits. The returned error is nil for an orderly exit.
func (c *Client) Run() error {
	if err := c.t.Send(&protocol.Join{Name: c.name}); err != nil {
		return fmt.Errorf("client: join: %w", err)
	}

	recvErr := make(chan error, 1)
	go func() { recvErr <- c.receiveLoop() }()

	inputDone := make(chan error, 1)
	go func() { inputDone <- c.inputLoop() }()

	select {
	case err := <-recvErr:
		_ = c.t.Close()
		return err
	case err := <-inputDone:
		_ = c.t.Close()
		<-recvErr // wait for the printer to notice the close
		return err
	}
}

// receiveLoop renders incoming messages until the connection ends.
func (c *Client) receiveLoop() error {
	for {
		msg, err := c.t.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, transport.ErrClosed) {
				fmt.Fprintln(c.out, "-- disconnected --")
				return nil
			}
			return fmt.Errorf("client: receive: %w", err)
		}

		switch m := msg.(type) {
		case *protocol.Chat:
			fmt.Fprintf(c.out, "<%s> %s\n", m.From, m.Body)
		case *protocol.Presence:
			if m.Online {
				fmt.Fprintf(c.out, "* %s joined\n", m.Name)
			} else {
				fmt.Fprintf(c.out, "* %s left\n", m.Name)
			}
		case *protocol.Error:
			fmt.Fprintf(c.out, "! server: %s\n", m.Reason)
		default:
			slog.Debug("ignoring unexpected message", "tag", msg.Tag().String())
		}
	}
}

// inputLoop reads lines and sends them as chat until EOF or /quit.
func (c *Client) inputLoop() error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == quitCommand {
			_ = c.t.Send(&protocol.Leave{})
			return nil
		}
		if err := c.t.Send(&protocol.Chat{Body: line}); err != nil {
			if errors.Is(err, transport.ErrClosed) {
				return nil
			}
			return fmt.Errorf("client: send: %w", err)
		}
	}
	// stdin EOF is an orderly exit too.
	_ = c.t.Send(&protocol.Leave{})
	return scanner.Err()
}
