package signaling

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/priyanshu442004/WatchParty/internal/protocol"
)

// inbound couples a decoded frame with the connection that sent it.
type inbound struct {
	client *Client
	msg    *protocol.Message
}

// relayEnvelope is the only part of a negotiation frame the hub interprets:
// who it is addressed to. The SDP or candidate body is passed through
// untouched, whichever of the three fields is present.
type relayEnvelope struct {
	TargetID  string          `json:"target_id,omitempty"`
	FromID    string          `json:"from_id,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Hub is the central brain of the signaling server. It owns all rooms and
// their membership; Run is the single goroutine that mutates them, so join
// ordering seen by any participant is the authoritative ordering.
type Hub struct {
	log *slog.Logger

	// mu guards rooms and the per-client toggle state against the read-only
	// Participants accessor used by the room directory; all writes still
	// happen on the Run goroutine.
	mu    sync.RWMutex
	rooms map[string]*Room

	// Register is the channel for newly upgraded connections.
	Register chan *Client

	// Unregister is the channel for connections whose read pump ended.
	Unregister chan *Client

	// Inbound carries every frame read from any participant.
	Inbound chan *inbound
}

// NewHub creates a hub with no rooms.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:        log,
		rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound, 64),
	}
}

// Participants reports the live participants of a room, for the room
// directory's detail endpoint. Returns nil when the room has no live
// session.
func (h *Hub) Participants(roomID string) map[string]protocol.ParticipantInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	return room.snapshot("")
}

// Run starts the hub's main processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// Not in a room yet; the client must send join_room first.
			h.log.Debug("client registered", "participant_id", client.ID)

		case client := <-h.Unregister:
			h.handleLeave(client)
			close(client.Send)

		case in := <-h.Inbound:
			h.handleMessage(in.client, in.msg)
		}
	}
}

func (h *Hub) handleMessage(c *Client, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.handleJoin(c, msg)

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		h.relay(c, msg)

	case protocol.TypeToggleVideo:
		h.handleToggle(c, msg, protocol.TypeVideoToggled)

	case protocol.TypeToggleAudio:
		h.handleToggle(c, msg, protocol.TypeAudioToggled)

	case protocol.TypeStartScreenShare:
		h.handleScreenShare(c, true)

	case protocol.TypeStopScreenShare:
		h.handleScreenShare(c, false)

	default:
		h.log.Warn("unknown message type", "participant_id", c.ID, "type", msg.Type)
	}
}

func (h *Hub) handleJoin(c *Client, msg *protocol.Message) {
	var join protocol.JoinRoomPayload
	if err := json.Unmarshal(msg.Payload, &join); err != nil || join.RoomID == "" {
		h.sendError(c, "invalid join_room payload")
		return
	}

	if c.RoomID != "" {
		h.sendError(c, "already in a room")
		return
	}

	h.mu.Lock()
	room, ok := h.rooms[join.RoomID]
	if !ok {
		room = newRoom(join.RoomID)
		h.rooms[join.RoomID] = room
	}

	c.Name = join.UserName
	c.RoomID = join.RoomID
	c.VideoEnabled = true
	c.AudioEnabled = true
	c.ScreenSharing = false
	room.add(c)
	h.mu.Unlock()

	h.log.Info("participant joined room",
		"participant_id", c.ID, "room_id", room.ID, "name", c.Name,
		"participants", len(room.Participants))

	// Ack the joiner with everyone already present, then announce the
	// joiner to them. The order the two frames fan out fixes the
	// caller/callee roles each side derives.
	ack, err := protocol.NewMessage(protocol.TypeRoomJoined, protocol.RoomJoined{
		RoomID:       room.ID,
		SelfID:       c.ID,
		Participants: room.snapshot(c.ID),
	})
	if err != nil {
		h.log.Error("encode room_joined", "error", err)
		return
	}
	c.deliver(ack)

	joined, err := protocol.NewMessage(protocol.TypeUserJoined, protocol.UserJoined{
		UserID:   c.ID,
		UserName: c.Name,
	})
	if err != nil {
		h.log.Error("encode user_joined", "error", err)
		return
	}
	room.broadcast(joined, c.ID)
}

// relay forwards a negotiation frame to its addressee inside the sender's
// room, rewriting target_id into from_id. The SDP/candidate body is opaque.
func (h *Hub) relay(c *Client, msg *protocol.Message) {
	room := h.roomOf(c)
	if room == nil {
		h.sendError(c, "join a room before signaling")
		return
	}

	var env relayEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil || env.TargetID == "" {
		h.sendError(c, "invalid signaling payload")
		return
	}

	target, ok := room.Participants[env.TargetID]
	if !ok {
		// The addressee already left; negotiation frames for them are
		// dropped, the sender will observe user_left shortly.
		h.log.Debug("dropping signal for absent participant",
			"from", c.ID, "target", env.TargetID, "type", msg.Type)
		return
	}

	env.FromID = c.ID
	env.TargetID = ""
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Error("re-encode relay payload", "error", err)
		return
	}
	target.deliver(&protocol.Message{Type: msg.Type, Payload: payload})
}

func (h *Hub) handleToggle(c *Client, msg *protocol.Message, outType string) {
	room := h.roomOf(c)
	if room == nil {
		return
	}

	var toggle protocol.TogglePayload
	if err := json.Unmarshal(msg.Payload, &toggle); err != nil {
		h.sendError(c, "invalid toggle payload")
		return
	}

	// Participants reads this state from the directory's goroutine, so the
	// write needs the same lock handleJoin takes.
	h.mu.Lock()
	var payload protocol.Event
	switch outType {
	case protocol.TypeVideoToggled:
		c.VideoEnabled = toggle.Enabled
		payload = protocol.VideoToggled{UserID: c.ID, Enabled: toggle.Enabled}
	case protocol.TypeAudioToggled:
		c.AudioEnabled = toggle.Enabled
		payload = protocol.AudioToggled{UserID: c.ID, Enabled: toggle.Enabled}
	}
	h.mu.Unlock()

	out, err := protocol.NewMessage(outType, payload)
	if err != nil {
		h.log.Error("encode toggle", "error", err)
		return
	}
	room.broadcast(out, c.ID)
}

func (h *Hub) handleScreenShare(c *Client, sharing bool) {
	room := h.roomOf(c)
	if room == nil {
		return
	}

	h.mu.Lock()
	c.ScreenSharing = sharing
	h.mu.Unlock()

	outType := protocol.TypeScreenShareStop
	payload := protocol.Event(protocol.ScreenShareStopped{UserID: c.ID})
	if sharing {
		outType = protocol.TypeScreenShareStart
		payload = protocol.ScreenShareStarted{UserID: c.ID}
	}
	out, err := protocol.NewMessage(outType, payload)
	if err != nil {
		h.log.Error("encode screen share", "error", err)
		return
	}
	room.broadcast(out, c.ID)
}

func (h *Hub) handleLeave(c *Client) {
	room := h.roomOf(c)
	if room == nil {
		h.log.Debug("client unregistered", "participant_id", c.ID)
		return
	}

	h.mu.Lock()
	room.remove(c)
	deleted := false
	if room.empty() {
		delete(h.rooms, room.ID)
		deleted = true
	}
	h.mu.Unlock()

	h.log.Info("participant left room",
		"participant_id", c.ID, "room_id", room.ID, "room_deleted", deleted)

	if deleted {
		return
	}

	left, err := protocol.NewMessage(protocol.TypeUserLeft, protocol.UserLeft{UserID: c.ID})
	if err != nil {
		h.log.Error("encode user_left", "error", err)
		return
	}
	room.broadcast(left, c.ID)
}

func (h *Hub) roomOf(c *Client) *Room {
	if c.RoomID == "" {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[c.RoomID]
}

func (h *Hub) sendError(c *Client, text string) {
	msg, err := protocol.NewMessage(protocol.TypeError, protocol.ErrorPayload{Error: text})
	if err != nil {
		return
	}
	c.deliver(msg)
}
