// Package peerlink drives one WebRTC negotiation state machine per remote
// participant. All methods must be called from a single goroutine (the
// session event loop); nothing here locks.
package peerlink

import (
	"github.com/pion/webrtc/v4"
)

// Role is fixed at link creation and never changes. Whoever was already in
// the room calls; the newcomer answers. Deriving the role from which
// membership event fired makes the assignment deterministic on every
// participant's view and removes offer glare.
type Role int

const (
	RoleCaller Role = iota
	RoleCallee
)

func (r Role) String() string {
	switch r {
	case RoleCaller:
		return "caller"
	case RoleCallee:
		return "callee"
	default:
		return "unknown"
	}
}

// State is the negotiation state of a link.
type State int

const (
	StateIdle State = iota
	StateOffering
	StateAwaitingAnswer
	StateAwaitingOffer
	StateAnswering
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateAwaitingOffer:
		return "awaiting-offer"
	case StateAnswering:
		return "answering"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sender is the write half of one outgoing track on a link. Replacing the
// track swaps the media payload without renegotiating the session.
type Sender interface {
	ReplaceTrack(track webrtc.TrackLocal) error
	Track() webrtc.TrackLocal
}

// DataChannel is the minimal surface of a negotiated data channel, used by
// the chat sidecar.
type DataChannel interface {
	Label() string
	Send(data []byte) error
	OnOpen(fn func())
	OnMessage(fn func(data []byte))
	Close() error
}

// PeerConnection is the abstract peer-connection capability the link state
// machine drives. The production implementation wraps pion; tests use a
// scripted fake.
type PeerConnection interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	AddTrack(track webrtc.TrackLocal) (Sender, error)
	CreateDataChannel(label string) (DataChannel, error)
	OnICECandidate(fn func(candidate webrtc.ICECandidateInit))
	OnTrack(fn func(track *webrtc.TrackRemote))
	OnDataChannel(fn func(dc DataChannel))
	Close() error
}

// Factory builds a fresh transport for a new link.
type Factory func() (PeerConnection, error)

// Signaler carries negotiation frames outward, always addressed to one
// specific participant.
type Signaler interface {
	SendOffer(targetID string, offer webrtc.SessionDescription) error
	SendAnswer(targetID string, answer webrtc.SessionDescription) error
	SendCandidate(targetID string, candidate webrtc.ICECandidateInit) error
}

// TrackSource exposes the current local media tracks. Links read from it
// when they are created or when an offer arrives; they never mutate it.
type TrackSource interface {
	Tracks() []webrtc.TrackLocal
}
