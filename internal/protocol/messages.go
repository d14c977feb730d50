package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Message is the envelope for every websocket frame exchanged between a
// participant and the signaling server. Payload is kept raw so the server
// can relay negotiation frames without caring about their contents.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to server message types.
const (
	TypeJoinRoom         = "join_room"
	TypeOffer            = "webrtc_offer"
	TypeAnswer           = "webrtc_answer"
	TypeICECandidate     = "webrtc_ice_candidate"
	TypeToggleVideo      = "toggle_video"
	TypeToggleAudio      = "toggle_audio"
	TypeStartScreenShare = "start_screen_share"
	TypeStopScreenShare  = "stop_screen_share"
)

// Server to client message types. Offer, answer and candidate frames reuse
// the client type names; the server rewrites target_id into from_id.
const (
	TypeRoomJoined       = "room_joined"
	TypeUserJoined       = "user_joined"
	TypeUserLeft         = "user_left"
	TypeVideoToggled     = "user_video_toggle"
	TypeAudioToggled     = "user_audio_toggle"
	TypeScreenShareStart = "user_screen_share_start"
	TypeScreenShareStop  = "user_screen_share_stop"
	TypeError            = "error"
)

// NewMessage wraps a payload into an envelope ready to be written out.
func NewMessage(msgType string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return &Message{Type: msgType, Payload: raw}, nil
}

// JoinRoomPayload asks the server to add this connection to a room.
type JoinRoomPayload struct {
	RoomID   string `json:"room_id"`
	UserName string `json:"user_name"`
}

// OfferPayload carries an SDP offer to one specific participant.
type OfferPayload struct {
	TargetID string                    `json:"target_id"`
	Offer    webrtc.SessionDescription `json:"offer"`
}

// AnswerPayload carries an SDP answer back to the offerer.
type AnswerPayload struct {
	TargetID string                    `json:"target_id"`
	Answer   webrtc.SessionDescription `json:"answer"`
}

// CandidatePayload carries one ICE candidate to one specific participant.
// Candidates are never broadcast room wide.
type CandidatePayload struct {
	TargetID  string                  `json:"target_id"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// TogglePayload flips the sender's video or audio flag.
type TogglePayload struct {
	Enabled bool `json:"enabled"`
}

// ParticipantInfo is the media state the server tracks per participant.
type ParticipantInfo struct {
	Name          string `json:"name"`
	VideoEnabled  bool   `json:"video_enabled"`
	AudioEnabled  bool   `json:"audio_enabled"`
	ScreenSharing bool   `json:"screen_sharing"`
}

// ErrorPayload is sent by the server when a request cannot be honored.
type ErrorPayload struct {
	Error string `json:"error"`
}
