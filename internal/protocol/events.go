package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Event is the closed set of server-to-client events. Every inbound frame
// decodes into exactly one of the types below, so a handler switching over
// Event is checked at compile time when a new kind is added.
type Event interface {
	isEvent()
}

// RoomJoined acknowledges our own join. Participants holds everyone who was
// already in the room, keyed by participant id, and never includes SelfID.
type RoomJoined struct {
	RoomID       string                     `json:"room_id"`
	SelfID       string                     `json:"self_id"`
	Participants map[string]ParticipantInfo `json:"participants"`
}

// UserJoined announces a newcomer to everyone already present.
type UserJoined struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// UserLeft announces a departure to the remaining participants.
type UserLeft struct {
	UserID string `json:"user_id"`
}

// OfferReceived is a relayed SDP offer addressed to us.
type OfferReceived struct {
	FromID string                    `json:"from_id"`
	Offer  webrtc.SessionDescription `json:"offer"`
}

// AnswerReceived is a relayed SDP answer addressed to us.
type AnswerReceived struct {
	FromID string                    `json:"from_id"`
	Answer webrtc.SessionDescription `json:"answer"`
}

// CandidateReceived is a relayed ICE candidate addressed to us.
type CandidateReceived struct {
	FromID    string                  `json:"from_id"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// VideoToggled reports a remote participant enabling or disabling video.
type VideoToggled struct {
	UserID  string `json:"user_id"`
	Enabled bool   `json:"enabled"`
}

// AudioToggled reports a remote participant enabling or disabling audio.
type AudioToggled struct {
	UserID  string `json:"user_id"`
	Enabled bool   `json:"enabled"`
}

// ScreenShareStarted reports a remote participant starting a screen share.
type ScreenShareStarted struct {
	UserID string `json:"user_id"`
}

// ScreenShareStopped reports a remote participant ending a screen share.
type ScreenShareStopped struct {
	UserID string `json:"user_id"`
}

// ServerError is a request rejection from the server.
type ServerError struct {
	Error string `json:"error"`
}

func (RoomJoined) isEvent()         {}
func (UserJoined) isEvent()         {}
func (UserLeft) isEvent()           {}
func (OfferReceived) isEvent()      {}
func (AnswerReceived) isEvent()     {}
func (CandidateReceived) isEvent()  {}
func (VideoToggled) isEvent()       {}
func (AudioToggled) isEvent()       {}
func (ScreenShareStarted) isEvent() {}
func (ScreenShareStopped) isEvent() {}
func (ServerError) isEvent()        {}

// ErrUnknownEvent reports a frame whose type has no decoder.
type ErrUnknownEvent struct {
	Type string
}

func (e *ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// DecodeEvent turns an inbound envelope into its typed event.
func DecodeEvent(msg *Message) (Event, error) {
	switch msg.Type {
	case TypeRoomJoined:
		return decode[RoomJoined](msg)
	case TypeUserJoined:
		return decode[UserJoined](msg)
	case TypeUserLeft:
		return decode[UserLeft](msg)
	case TypeOffer:
		return decode[OfferReceived](msg)
	case TypeAnswer:
		return decode[AnswerReceived](msg)
	case TypeICECandidate:
		return decode[CandidateReceived](msg)
	case TypeVideoToggled:
		return decode[VideoToggled](msg)
	case TypeAudioToggled:
		return decode[AudioToggled](msg)
	case TypeScreenShareStart:
		return decode[ScreenShareStarted](msg)
	case TypeScreenShareStop:
		return decode[ScreenShareStopped](msg)
	case TypeError:
		return decode[ServerError](msg)
	default:
		return nil, &ErrUnknownEvent{Type: msg.Type}
	}
}

func decode[T Event](msg *Message) (Event, error) {
	var ev T
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", msg.Type, err)
		}
	}
	return ev, nil
}
