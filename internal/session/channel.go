package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/priyanshu442004/WatchParty/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrChannelClosed means the signaling channel dropped. There is no
// reconnect: the room session is over.
var ErrChannelClosed = errors.New("signaling channel closed")

// Transport is the signaling channel as the session sees it: ordered typed
// events in, addressed messages out.
type Transport interface {
	Send(msgType string, payload any) error
	Events() <-chan protocol.Event
	Close()
}

// Channel is the websocket implementation of Transport.
type Channel struct {
	conn      *websocket.Conn
	serverURL string
	events    chan protocol.Event
	outgoing  chan *protocol.Message
	done      chan struct{}
	closed    bool
}

// NewChannel creates a channel for the given websocket URL. Connect must be
// called before use.
func NewChannel(serverURL string) *Channel {
	return &Channel{
		serverURL: serverURL,
		events:    make(chan protocol.Event, 32),
		outgoing:  make(chan *protocol.Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the pumps.
func (c *Channel) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads frames, decodes them into typed events and delivers them
// in arrival order. The events channel closing signals a dead channel.
func (c *Channel) readPump() {
	defer func() {
		c.conn.Close()
		close(c.events)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		event, err := protocol.DecodeEvent(&msg)
		if err != nil {
			// Unknown or malformed frames don't kill the channel; a newer
			// server may emit kinds this client doesn't know.
			slog.Debug("dropping undecodable frame", "type", msg.Type, "error", err)
			continue
		}

		select {
		case c.events <- event:
		case <-c.done:
			// Nobody is consuming anymore; blocking on a full buffer would
			// pin this goroutine past Close.
			return
		}
	}
}

// writePump writes queued messages and sends periodic pings.
func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send encodes and queues a message. Encoding failures and a closed channel
// are reported to the caller, never swallowed.
func (c *Channel) Send(msgType string, payload any) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return err
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrChannelClosed
	}
}

// Events returns the ordered inbound event stream.
func (c *Channel) Events() <-chan protocol.Event {
	return c.events
}

// Close shuts the write side down and closes the connection.
func (c *Channel) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
