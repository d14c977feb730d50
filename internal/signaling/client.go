package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/priyanshu442004/WatchParty/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP descriptions are the
	// largest frames and fit comfortably.
	maxMessageSize = 64 * 1024
)

// Client is a wrapper for a single websocket connection (one participant).
// The participant id is assigned at upgrade time and is what every other
// participant knows this connection by.
type Client struct {
	ID   string
	Name string

	Hub  *Hub
	Conn *websocket.Conn

	// RoomID is empty until a join_room is processed.
	RoomID string

	// Media toggle state. Written only by the hub loop under Hub.mu;
	// Hub.Participants reads it from other goroutines under the same lock.
	VideoEnabled  bool
	AudioEnabled  bool
	ScreenSharing bool

	// Send is the buffered channel of outbound messages. WritePump is the
	// only reader.
	Send chan *protocol.Message
}

// Info reports the client's media state in wire form.
func (c *Client) Info() protocol.ParticipantInfo {
	return protocol.ParticipantInfo{
		Name:          c.Name,
		VideoEnabled:  c.VideoEnabled,
		AudioEnabled:  c.AudioEnabled,
		ScreenSharing: c.ScreenSharing,
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine, ensuring at
// most one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "participant_id", c.ID, "error", err)
			}
			break
		}

		c.Hub.Inbound <- &inbound{client: c, msg: &msg}
	}
}

// WritePump pumps messages from the hub to the websocket connection and
// sends periodic pings. One goroutine per connection, the only writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Warn("websocket write failed", "participant_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues a message for the client, dropping it if the client's
// write side is too far behind to keep the hub loop from blocking.
func (c *Client) deliver(msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("participant send buffer full, dropping message",
			"participant_id", c.ID, "type", msg.Type)
	}
}
