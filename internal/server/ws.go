package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/priyanshu442004/WatchParty/internal/protocol"
	"github.com/priyanshu442004/WatchParty/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Browsers talk to the webapp on a different origin in development.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWs upgrades the connection and hands it to the hub. The participant
// id every peer addresses this connection by is assigned here.
func (h *Handler) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &signaling.Client{
		ID:   uuid.NewString(),
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan *protocol.Message, 256),
	}

	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
