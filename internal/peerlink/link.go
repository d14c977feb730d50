package peerlink

import (
	"time"

	"github.com/pion/webrtc/v4"
)

// Link is the negotiation state machine toward one remote participant.
type Link struct {
	// ParticipantID is the remote end's id, as assigned by the server.
	ParticipantID string

	// Role never changes after creation.
	Role Role

	state State
	pc    PeerConnection

	// pending buffers remote ICE candidates that arrived before the remote
	// description. Invariant: once remoteDescSet is true the buffer is
	// empty; candidates drain in arrival order the moment the description
	// applies.
	pending       []webrtc.ICECandidateInit
	remoteDescSet bool

	// senders holds one sender per attached outgoing track kind.
	senders map[webrtc.RTPCodecType]Sender

	deadline *time.Timer
}

// State reports the link's current negotiation state.
func (l *Link) State() State {
	return l.state
}

// Connected reports whether offer/answer negotiation has completed.
func (l *Link) Connected() bool {
	return l.state == StateConnected
}

func (l *Link) closed() bool {
	return l.state == StateClosed
}

// attachTracks adds every current local track to the transport and records
// the resulting senders by kind.
func (l *Link) attachTracks(source TrackSource) error {
	if source == nil {
		return nil
	}
	for _, track := range source.Tracks() {
		if track == nil {
			continue
		}
		sender, err := l.pc.AddTrack(track)
		if err != nil {
			return err
		}
		l.senders[track.Kind()] = sender
	}
	return nil
}

// startOffer runs the caller's opening sequence: local offer built and set,
// then shipped to the remote id. The link then waits for the answer.
func (l *Link) startOffer(signaler Signaler) error {
	l.state = StateOffering

	offer, err := l.pc.CreateOffer()
	if err != nil {
		return newNegotiationError("create offer", l.ParticipantID, err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return newNegotiationError("set local description", l.ParticipantID, err)
	}
	if l.closed() {
		return ErrLinkClosed
	}
	if err := signaler.SendOffer(l.ParticipantID, offer); err != nil {
		return newNegotiationError("send offer", l.ParticipantID, err)
	}

	l.state = StateAwaitingAnswer
	return nil
}

// acceptOffer runs the callee's sequence: remote offer applied, buffered
// candidates drained, local answer built, set and shipped back.
func (l *Link) acceptOffer(offer webrtc.SessionDescription, source TrackSource, signaler Signaler) error {
	if l.Role != RoleCallee || l.state != StateAwaitingOffer {
		return ErrUnexpectedOffer
	}

	if err := l.attachTracks(source); err != nil {
		return newNegotiationError("attach tracks", l.ParticipantID, err)
	}

	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return newNegotiationError("set remote description", l.ParticipantID, err)
	}
	l.remoteDescSet = true
	l.drainCandidates()

	l.state = StateAnswering
	answer, err := l.pc.CreateAnswer()
	if err != nil {
		return newNegotiationError("create answer", l.ParticipantID, err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return newNegotiationError("set local description", l.ParticipantID, err)
	}
	if l.closed() {
		return ErrLinkClosed
	}
	if err := signaler.SendAnswer(l.ParticipantID, answer); err != nil {
		return newNegotiationError("send answer", l.ParticipantID, err)
	}

	l.state = StateConnected
	return nil
}

// acceptAnswer completes the caller's handshake.
func (l *Link) acceptAnswer(answer webrtc.SessionDescription) error {
	if l.Role != RoleCaller || l.state != StateAwaitingAnswer {
		return ErrUnexpectedAnswer
	}

	if err := l.pc.SetRemoteDescription(answer); err != nil {
		return newNegotiationError("set remote description", l.ParticipantID, err)
	}
	l.remoteDescSet = true
	l.drainCandidates()

	l.state = StateConnected
	return nil
}

// addCandidate applies a remote candidate immediately when possible,
// otherwise buffers it until the remote description exists.
func (l *Link) addCandidate(candidate webrtc.ICECandidateInit) error {
	if !l.remoteDescSet {
		l.pending = append(l.pending, candidate)
		return nil
	}
	if err := l.pc.AddICECandidate(candidate); err != nil {
		return newNegotiationError("add ice candidate", l.ParticipantID, err)
	}
	return nil
}

// drainCandidates applies buffered candidates in arrival order. Individual
// candidates that fail to apply are skipped; a bad network path is not a
// reason to abandon the whole link.
func (l *Link) drainCandidates() {
	for _, candidate := range l.pending {
		l.pc.AddICECandidate(candidate)
	}
	l.pending = nil
}

// replaceTrack swaps the outgoing track of the same kind in place. Links
// without a matching sender (no track of that kind attached) are skipped.
func (l *Link) replaceTrack(track webrtc.TrackLocal) error {
	sender, ok := l.senders[track.Kind()]
	if !ok {
		return nil
	}
	if err := sender.ReplaceTrack(track); err != nil {
		return newNegotiationError("replace track", l.ParticipantID, err)
	}
	return nil
}

// close tears the transport down. Safe to call repeatedly.
func (l *Link) close() {
	if l.closed() {
		return
	}
	l.state = StateClosed
	l.pending = nil
	if l.deadline != nil {
		l.deadline.Stop()
		l.deadline = nil
	}
	l.pc.Close()
}
