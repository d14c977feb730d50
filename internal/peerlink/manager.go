package peerlink

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pion/webrtc/v4"
)

// Config wires a Manager to its collaborators. NewConn, Signaler and Source
// are required; the callbacks are optional.
type Config struct {
	NewConn  Factory
	Signaler Signaler
	Source   TrackSource
	Log      *slog.Logger

	// NegotiationTimeout bounds how long a link may sit waiting for the
	// remote description. Zero disables the deadline.
	NegotiationTimeout time.Duration

	// DataChannelLabel, when set, makes every caller link open a data
	// channel with this label so it rides the initial offer.
	DataChannelLabel string

	// OnRemoteTrack fires when a remote participant's media arrives.
	OnRemoteTrack func(peerID string, track *webrtc.TrackRemote)

	// OnDataChannel fires for both the caller-created channel and the
	// channel announced by the remote side.
	OnDataChannel func(peerID string, dc DataChannel)

	// OnStateChange fires after every negotiation state transition.
	OnStateChange func(peerID string, state State)

	// OnDeadline fires from a timer goroutine when a link overstays
	// NegotiationTimeout. The owner must re-enter the event loop and call
	// ExpireIfPending there; the manager itself is not goroutine safe.
	OnDeadline func(peerID string)
}

// Manager owns every peer link of one session. At most one link exists per
// remote participant. Not goroutine safe: the session event loop is the
// single caller.
type Manager struct {
	cfg   Config
	log   *slog.Logger
	links map[string]*Link
}

func NewManager(cfg Config) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Manager{
		cfg:   cfg,
		log:   cfg.Log,
		links: make(map[string]*Link),
	}
}

// AddCaller creates a caller-role link toward a participant that joined
// after us, and immediately starts the offer.
func (m *Manager) AddCaller(participantID string) error {
	link, err := m.newLink(participantID, RoleCaller)
	if err != nil {
		return err
	}

	if err := link.attachTracks(m.cfg.Source); err != nil {
		m.fail(link, err)
		return fmt.Errorf("%w: %v", ErrNegotiationRejected, err)
	}

	if m.cfg.DataChannelLabel != "" {
		dc, err := link.pc.CreateDataChannel(m.cfg.DataChannelLabel)
		if err != nil {
			m.fail(link, err)
			return fmt.Errorf("%w: %v", ErrNegotiationRejected, err)
		}
		if m.cfg.OnDataChannel != nil {
			m.cfg.OnDataChannel(participantID, dc)
		}
	}

	if err := link.startOffer(m.cfg.Signaler); err != nil {
		m.fail(link, err)
		return fmt.Errorf("%w: %v", ErrNegotiationRejected, err)
	}

	m.changed(link)
	return nil
}

// AddCallee creates a callee-role link toward a participant that was
// already present when we joined, and waits for their offer.
func (m *Manager) AddCallee(participantID string) error {
	link, err := m.newLink(participantID, RoleCallee)
	if err != nil {
		return err
	}
	link.state = StateAwaitingOffer
	m.changed(link)
	return nil
}

// HandleOffer applies a relayed offer to the matching callee link. Offers
// for unknown ids or links that already negotiated are protocol violations
// and are ignored.
func (m *Manager) HandleOffer(fromID string, offer webrtc.SessionDescription) {
	link, ok := m.links[fromID]
	if !ok {
		m.log.Warn("offer from participant with no link, ignoring", "from", fromID)
		return
	}

	if err := link.acceptOffer(offer, m.cfg.Source, m.cfg.Signaler); err != nil {
		if errors.Is(err, ErrUnexpectedOffer) {
			m.log.Warn("duplicate or misdirected offer, ignoring",
				"from", fromID, "role", link.Role.String(), "state", link.State().String())
			return
		}
		m.log.Error("offer handling failed, closing link", "from", fromID, "error", err)
		m.Remove(fromID)
		return
	}

	m.changed(link)
}

// HandleAnswer completes the handshake on the matching caller link.
func (m *Manager) HandleAnswer(fromID string, answer webrtc.SessionDescription) {
	link, ok := m.links[fromID]
	if !ok {
		m.log.Warn("answer from participant with no link, ignoring", "from", fromID)
		return
	}

	if err := link.acceptAnswer(answer); err != nil {
		if errors.Is(err, ErrUnexpectedAnswer) {
			m.log.Warn("duplicate or misdirected answer, ignoring",
				"from", fromID, "role", link.Role.String(), "state", link.State().String())
			return
		}
		m.log.Error("answer handling failed, closing link", "from", fromID, "error", err)
		m.Remove(fromID)
		return
	}

	m.changed(link)
}

// HandleCandidate applies or buffers a relayed ICE candidate. Candidates
// for ids without a link are stale (the link was already torn down) and are
// dropped silently.
func (m *Manager) HandleCandidate(fromID string, candidate webrtc.ICECandidateInit) {
	link, ok := m.links[fromID]
	if !ok {
		m.log.Debug("stale ice candidate, dropping", "from", fromID)
		return
	}

	if err := link.addCandidate(candidate); err != nil {
		m.log.Warn("ice candidate rejected", "from", fromID, "error", err)
	}
}

// ExpireIfPending closes a link that is still waiting for the remote
// description after the negotiation deadline. A no-op for links that have
// connected or already closed.
func (m *Manager) ExpireIfPending(participantID string) {
	link, ok := m.links[participantID]
	if !ok || link.Connected() {
		return
	}
	m.log.Warn("negotiation deadline exceeded, closing link",
		"participant_id", participantID, "state", link.State().String())
	m.Remove(participantID)
}

// Remove tears a link down and forgets it. Idempotent: removing an id with
// no link is a no-op.
func (m *Manager) Remove(participantID string) {
	link, ok := m.links[participantID]
	if !ok {
		return
	}
	link.close()
	delete(m.links, participantID)
	m.changed(link)
}

// CloseAll tears down every link, for channel disconnect or room exit.
func (m *Manager) CloseAll() {
	for id := range m.links {
		m.Remove(id)
	}
}

// ReplaceOutgoingTracks swaps the outgoing media of every connected link in
// place, one track per kind. The session descriptions stay valid; nothing
// renegotiates. The first failure aborts and is returned.
func (m *Manager) ReplaceOutgoingTracks(tracks ...webrtc.TrackLocal) error {
	for _, link := range m.links {
		if !link.Connected() {
			continue
		}
		for _, track := range tracks {
			if track == nil {
				continue
			}
			if err := link.replaceTrack(track); err != nil {
				return err
			}
		}
	}
	return nil
}

// Has reports whether a link exists for the participant.
func (m *Manager) Has(participantID string) bool {
	_, ok := m.links[participantID]
	return ok
}

// StateOf reports a link's negotiation state.
func (m *Manager) StateOf(participantID string) (State, bool) {
	link, ok := m.links[participantID]
	if !ok {
		return StateClosed, false
	}
	return link.State(), true
}

// RoleOf reports a link's fixed role.
func (m *Manager) RoleOf(participantID string) (Role, bool) {
	link, ok := m.links[participantID]
	if !ok {
		return RoleCaller, false
	}
	return link.Role, true
}

// IDs lists the participants with an active link.
func (m *Manager) IDs() []string {
	out := make([]string, 0, len(m.links))
	for id := range m.links {
		out = append(out, id)
	}
	return out
}

// Len reports the number of active links.
func (m *Manager) Len() int {
	return len(m.links)
}

func (m *Manager) newLink(participantID string, role Role) (*Link, error) {
	if _, ok := m.links[participantID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateLink, participantID)
	}

	pc, err := m.cfg.NewConn()
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	link := &Link{
		ParticipantID: participantID,
		Role:          role,
		state:         StateIdle,
		pc:            pc,
		senders:       make(map[webrtc.RTPCodecType]Sender),
	}
	m.links[participantID] = link

	pc.OnICECandidate(func(candidate webrtc.ICECandidateInit) {
		if err := m.cfg.Signaler.SendCandidate(participantID, candidate); err != nil {
			m.log.Warn("send ice candidate failed", "target", participantID, "error", err)
		}
	})
	if m.cfg.OnRemoteTrack != nil {
		pc.OnTrack(func(track *webrtc.TrackRemote) {
			m.cfg.OnRemoteTrack(participantID, track)
		})
	}
	if m.cfg.OnDataChannel != nil {
		pc.OnDataChannel(func(dc DataChannel) {
			m.cfg.OnDataChannel(participantID, dc)
		})
	}

	if m.cfg.NegotiationTimeout > 0 && m.cfg.OnDeadline != nil {
		link.deadline = time.AfterFunc(m.cfg.NegotiationTimeout, func() {
			m.cfg.OnDeadline(participantID)
		})
	}

	return link, nil
}

func (m *Manager) fail(link *Link, err error) {
	m.log.Error("link setup failed", "participant_id", link.ParticipantID, "error", err)
	link.close()
	delete(m.links, link.ParticipantID)
}

func (m *Manager) changed(link *Link) {
	if link.Connected() && link.deadline != nil {
		link.deadline.Stop()
		link.deadline = nil
	}
	if m.cfg.OnStateChange != nil {
		m.cfg.OnStateChange(link.ParticipantID, link.State())
	}
}
