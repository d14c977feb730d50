// Package chat is the room text chat, carried peer to peer over a data
// channel on each peer link. It never touches the signaling server.
package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/priyanshu442004/WatchParty/internal/peerlink"
)

// ChannelLabel is the data channel every caller link opens for chat.
const ChannelLabel = "chat"

// Message is one chat line. FromID is filled in by the receiving side from
// the link the message arrived on, so a peer cannot impersonate another.
type Message struct {
	FromID string    `msgpack:"-"`
	Name   string    `msgpack:"name"`
	Text   string    `msgpack:"text"`
	SentAt time.Time `msgpack:"sent_at"`
}

type entry struct {
	dc   peerlink.DataChannel
	open bool
}

// Room fans chat messages out to every attached peer and surfaces inbound
// ones. Safe for concurrent use; data channel callbacks arrive on
// transport goroutines.
type Room struct {
	log      *slog.Logger
	selfName string

	mu    sync.Mutex
	peers map[string]*entry

	onMessage func(Message)
}

// NewRoom creates a chat room. onMessage fires for every inbound line, from
// a transport goroutine.
func NewRoom(log *slog.Logger, selfName string, onMessage func(Message)) *Room {
	if log == nil {
		log = slog.Default()
	}
	return &Room{
		log:       log,
		selfName:  selfName,
		peers:     make(map[string]*entry),
		onMessage: onMessage,
	}
}

// Attach adopts the chat data channel of one peer link. Both the channel we
// created as caller and the one announced by the remote side land here.
func (r *Room) Attach(peerID string, dc peerlink.DataChannel) {
	if dc.Label() != ChannelLabel {
		return
	}

	r.mu.Lock()
	e := &entry{dc: dc}
	r.peers[peerID] = e
	r.mu.Unlock()

	dc.OnOpen(func() {
		r.mu.Lock()
		e.open = true
		r.mu.Unlock()
	})

	dc.OnMessage(func(data []byte) {
		var msg Message
		if err := msgpack.Unmarshal(data, &msg); err != nil {
			r.log.Warn("undecodable chat message", "from", peerID, "error", err)
			return
		}
		msg.FromID = peerID
		if r.onMessage != nil {
			r.onMessage(msg)
		}
	})
}

// Detach forgets a departed peer. Idempotent.
func (r *Room) Detach(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, peerID)
}

// Broadcast sends a line to every open peer channel and returns the local
// copy for display.
func (r *Room) Broadcast(text string) Message {
	msg := Message{Name: r.selfName, Text: text, SentAt: time.Now()}

	data, err := msgpack.Marshal(&msg)
	if err != nil {
		r.log.Error("encode chat message", "error", err)
		return msg
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for peerID, e := range r.peers {
		if !e.open {
			continue
		}
		if err := e.dc.Send(data); err != nil {
			r.log.Warn("chat send failed", "to", peerID, "error", err)
		}
	}
	return msg
}

// Close drops every peer channel.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.peers {
		e.dc.Close()
		delete(r.peers, id)
	}
}
