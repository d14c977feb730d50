package session

import (
	"sort"

	"github.com/priyanshu442004/WatchParty/internal/protocol"
)

// Participant is one remote room member's identity and media toggle state,
// derived solely from signaling events.
type Participant struct {
	ID            string
	Name          string
	VideoEnabled  bool
	AudioEnabled  bool
	ScreenSharing bool
}

// Roster is the authoritative per-client registry of remote participants.
// Single-writer: only the session event loop mutates it, which is what
// keeps it consistent with the set of peer links.
type Roster struct {
	participants map[string]*Participant
}

func NewRoster() *Roster {
	return &Roster{participants: make(map[string]*Participant)}
}

// Add registers a newcomer with default toggle state. Returns false if the
// id is already known, which is a protocol violation the caller logs.
func (r *Roster) Add(id, name string) bool {
	if _, ok := r.participants[id]; ok {
		return false
	}
	r.participants[id] = &Participant{
		ID:           id,
		Name:         name,
		VideoEnabled: true,
		AudioEnabled: true,
	}
	return true
}

// AddKnown registers a participant with the state carried in room_joined.
func (r *Roster) AddKnown(id string, info protocol.ParticipantInfo) bool {
	if _, ok := r.participants[id]; ok {
		return false
	}
	r.participants[id] = &Participant{
		ID:            id,
		Name:          info.Name,
		VideoEnabled:  info.VideoEnabled,
		AudioEnabled:  info.AudioEnabled,
		ScreenSharing: info.ScreenSharing,
	}
	return true
}

// Remove forgets a participant. Returns false when the id was unknown.
func (r *Roster) Remove(id string) bool {
	if _, ok := r.participants[id]; !ok {
		return false
	}
	delete(r.participants, id)
	return true
}

// Get looks a participant up.
func (r *Roster) Get(id string) (*Participant, bool) {
	p, ok := r.participants[id]
	return p, ok
}

// SetVideo updates a participant's video toggle. Unknown ids are ignored.
func (r *Roster) SetVideo(id string, enabled bool) bool {
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.VideoEnabled = enabled
	return true
}

// SetAudio updates a participant's audio toggle.
func (r *Roster) SetAudio(id string, enabled bool) bool {
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.AudioEnabled = enabled
	return true
}

// SetScreenSharing updates a participant's screen share flag.
func (r *Roster) SetScreenSharing(id string, sharing bool) bool {
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	p.ScreenSharing = sharing
	return true
}

// IDs lists the known participant ids.
func (r *Roster) IDs() []string {
	out := make([]string, 0, len(r.participants))
	for id := range r.participants {
		out = append(out, id)
	}
	return out
}

// List returns the participants sorted by name, then id, for display.
func (r *Roster) List() []Participant {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len reports the number of known remote participants.
func (r *Roster) Len() int {
	return len(r.participants)
}
