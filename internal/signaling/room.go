package signaling

import (
	"github.com/priyanshu442004/WatchParty/internal/protocol"
)

// Room tracks the participants currently connected to one room. Media never
// flows through here; the room only fans signaling events out.
type Room struct {
	// ID matches the directory room the participants joined.
	ID string

	// Participants maps participant id to connection.
	Participants map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{
		ID:           id,
		Participants: make(map[string]*Client),
	}
}

func (r *Room) add(c *Client) {
	r.Participants[c.ID] = c
}

func (r *Room) remove(c *Client) {
	delete(r.Participants, c.ID)
}

func (r *Room) empty() bool {
	return len(r.Participants) == 0
}

// snapshot returns the media state of every participant except the one
// identified by exceptID. This is what a newcomer receives in room_joined.
func (r *Room) snapshot(exceptID string) map[string]protocol.ParticipantInfo {
	out := make(map[string]protocol.ParticipantInfo, len(r.Participants))
	for id, c := range r.Participants {
		if id == exceptID {
			continue
		}
		out[id] = c.Info()
	}
	return out
}

// broadcast delivers a message to every participant except the one
// identified by exceptID.
func (r *Room) broadcast(msg *protocol.Message, exceptID string) {
	for id, c := range r.Participants {
		if id == exceptID {
			continue
		}
		c.deliver(msg)
	}
}
