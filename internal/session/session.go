package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/priyanshu442004/WatchParty/internal/chat"
	"github.com/priyanshu442004/WatchParty/internal/media"
	"github.com/priyanshu442004/WatchParty/internal/peerlink"
	"github.com/priyanshu442004/WatchParty/internal/protocol"
)

// chatTail bounds how many chat lines a snapshot carries.
const chatTail = 50

// Config wires a Session to its collaborators. Transport, NewConn and
// Acquirer are required.
type Config struct {
	Log       *slog.Logger
	Transport Transport
	NewConn   peerlink.Factory
	Acquirer  media.Acquirer

	RoomID   string
	UserName string

	// NegotiationTimeout bounds each pairwise handshake. Zero disables it.
	NegotiationTimeout time.Duration

	// OnUpdate receives a fresh snapshot after every state change, from the
	// session goroutine. It must not call back into the session.
	OnUpdate func(Snapshot)
}

// PeerStatus is one remote participant as a snapshot row.
type PeerStatus struct {
	ID            string
	Name          string
	VideoEnabled  bool
	AudioEnabled  bool
	ScreenSharing bool
	Role          string
	LinkState     string
	Receiving     bool
}

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	RoomID        string
	SelfID        string
	UserName      string
	VideoEnabled  bool
	AudioEnabled  bool
	ScreenSharing bool
	Peers         []PeerStatus
	Chat          []chat.Message
	Err           error
}

// Session runs one participant's side of a room: it joins over the
// signaling transport, negotiates a peer link with every other participant
// and keeps local media flowing to all of them. Everything runs on the
// single goroutine inside Run; public methods post work into that loop and
// are safe to call from anywhere.
type Session struct {
	cfg    Config
	log    *slog.Logger
	roster *Roster
	links  *peerlink.Manager
	media  *media.Controller
	chat   *chat.Room

	selfID    string
	receiving map[string]int
	chatLog   []chat.Message

	intents chan func()
	done    chan struct{}
}

// New assembles a session. Run must be called exactly once.
func New(cfg Config) *Session {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	s := &Session{
		cfg:       cfg,
		log:       cfg.Log,
		roster:    NewRoster(),
		receiving: make(map[string]int),
		intents:   make(chan func(), 64),
		done:      make(chan struct{}),
	}

	s.media = media.NewController(cfg.Log, cfg.Acquirer, s)
	s.media.OnScreenEnded = func() {
		s.post(s.screenEnded)
	}

	s.chat = chat.NewRoom(cfg.Log, cfg.UserName, func(msg chat.Message) {
		s.post(func() { s.appendChat(msg) })
	})

	s.links = peerlink.NewManager(peerlink.Config{
		NewConn:            cfg.NewConn,
		Signaler:           s,
		Source:             s.media,
		Log:                cfg.Log,
		NegotiationTimeout: cfg.NegotiationTimeout,
		DataChannelLabel:   chat.ChannelLabel,
		OnRemoteTrack:      s.onRemoteTrack,
		OnDataChannel: func(peerID string, dc peerlink.DataChannel) {
			s.chat.Attach(peerID, dc)
		},
		OnDeadline: func(peerID string) {
			s.post(func() {
				s.links.ExpireIfPending(peerID)
			})
		},
	})

	return s
}

// Run acquires local media, joins the room and serves events until the
// context is canceled or the signaling channel dies. All peer links and the
// local source are released before it returns.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.media.Stop()
	defer s.chat.Close()
	defer s.links.CloseAll()

	if err := s.media.StartCamera(); err != nil {
		return fmt.Errorf("local media: %w", err)
	}

	err := s.cfg.Transport.Send(protocol.TypeJoinRoom, protocol.JoinRoomPayload{
		RoomID:   s.cfg.RoomID,
		UserName: s.cfg.UserName,
	})
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case fn := <-s.intents:
			fn()
			s.publish(nil)

		case ev, ok := <-s.cfg.Transport.Events():
			if !ok {
				s.publish(ErrChannelClosed)
				return ErrChannelClosed
			}
			if err := s.handleEvent(ev); err != nil {
				s.publish(err)
				return err
			}
			s.publish(nil)
		}
	}
}

func (s *Session) handleEvent(ev protocol.Event) error {
	switch ev := ev.(type) {
	case protocol.RoomJoined:
		// Everyone already present is Caller toward us and will offer once
		// our user_joined reaches them; we hold a callee link per incumbent.
		s.selfID = ev.SelfID
		for id, info := range ev.Participants {
			s.roster.AddKnown(id, info)
			if err := s.links.AddCallee(id); err != nil {
				s.log.Warn("link setup toward existing participant failed",
					"participant_id", id, "error", err)
			}
		}
		s.log.Info("joined room", "room_id", ev.RoomID, "self_id", ev.SelfID,
			"participants", len(ev.Participants))

	case protocol.UserJoined:
		// We were present first, so we call the newcomer.
		if !s.roster.Add(ev.UserID, ev.UserName) {
			s.log.Warn("duplicate user_joined, ignoring", "user_id", ev.UserID)
			return nil
		}
		if err := s.links.AddCaller(ev.UserID); err != nil {
			if errors.Is(err, peerlink.ErrDuplicateLink) {
				s.log.Warn("link already exists for newcomer, ignoring", "user_id", ev.UserID)
				return nil
			}
			s.log.Warn("link setup toward newcomer failed", "user_id", ev.UserID, "error", err)
		}

	case protocol.UserLeft:
		s.links.Remove(ev.UserID)
		s.chat.Detach(ev.UserID)
		s.roster.Remove(ev.UserID)
		delete(s.receiving, ev.UserID)

	case protocol.OfferReceived:
		s.links.HandleOffer(ev.FromID, ev.Offer)

	case protocol.AnswerReceived:
		s.links.HandleAnswer(ev.FromID, ev.Answer)

	case protocol.CandidateReceived:
		s.links.HandleCandidate(ev.FromID, ev.Candidate)

	case protocol.VideoToggled:
		s.roster.SetVideo(ev.UserID, ev.Enabled)

	case protocol.AudioToggled:
		s.roster.SetAudio(ev.UserID, ev.Enabled)

	case protocol.ScreenShareStarted:
		s.roster.SetScreenSharing(ev.UserID, true)

	case protocol.ScreenShareStopped:
		s.roster.SetScreenSharing(ev.UserID, false)

	case protocol.ServerError:
		if s.selfID == "" {
			return fmt.Errorf("join rejected: %s", ev.Error)
		}
		s.log.Warn("server rejected request", "error", ev.Error)
	}
	return nil
}

// ToggleVideo flips outgoing video and announces the new state.
func (s *Session) ToggleVideo() {
	s.post(func() {
		enabled := !s.media.VideoEnabled()
		s.media.SetVideoEnabled(enabled)
		s.send(protocol.TypeToggleVideo, protocol.TogglePayload{Enabled: enabled})
	})
}

// ToggleAudio flips outgoing audio and announces the new state.
func (s *Session) ToggleAudio() {
	s.post(func() {
		enabled := !s.media.AudioEnabled()
		s.media.SetAudioEnabled(enabled)
		s.send(protocol.TypeToggleAudio, protocol.TogglePayload{Enabled: enabled})
	})
}

// StartScreenShare switches every link to display capture.
func (s *Session) StartScreenShare() {
	s.post(func() {
		if err := s.media.StartScreenShare(); err != nil {
			s.log.Warn("start screen share", "error", err)
			return
		}
		s.send(protocol.TypeStartScreenShare, nil)
	})
}

// StopScreenShare switches every link back to the camera.
func (s *Session) StopScreenShare() {
	s.post(func() {
		if err := s.media.StopScreenShare(); err != nil {
			s.log.Warn("stop screen share", "error", err)
			return
		}
		s.send(protocol.TypeStopScreenShare, nil)
	})
}

// SendChat broadcasts a chat line to every connected peer.
func (s *Session) SendChat(text string) {
	s.post(func() {
		if text == "" {
			return
		}
		msg := s.chat.Broadcast(text)
		s.appendChat(msg)
	})
}

// screenEnded runs when the capture ends outside the app, for example the
// shared window closed. Falls back to the camera and tells the room.
func (s *Session) screenEnded() {
	if kind, ok := s.media.ActiveKind(); !ok || kind != media.Screen {
		return
	}
	if err := s.media.StopScreenShare(); err != nil {
		s.log.Warn("screen capture ended, camera restore failed", "error", err)
		return
	}
	s.send(protocol.TypeStopScreenShare, nil)
}

func (s *Session) appendChat(msg chat.Message) {
	s.chatLog = append(s.chatLog, msg)
	if len(s.chatLog) > chatTail {
		s.chatLog = s.chatLog[len(s.chatLog)-chatTail:]
	}
}

// SendOffer implements the peer link signaler.
func (s *Session) SendOffer(targetID string, offer webrtc.SessionDescription) error {
	return s.cfg.Transport.Send(protocol.TypeOffer, protocol.OfferPayload{
		TargetID: targetID,
		Offer:    offer,
	})
}

// SendAnswer implements the peer link signaler.
func (s *Session) SendAnswer(targetID string, answer webrtc.SessionDescription) error {
	return s.cfg.Transport.Send(protocol.TypeAnswer, protocol.AnswerPayload{
		TargetID: targetID,
		Answer:   answer,
	})
}

// SendCandidate implements the peer link signaler.
func (s *Session) SendCandidate(targetID string, candidate webrtc.ICECandidateInit) error {
	return s.cfg.Transport.Send(protocol.TypeICECandidate, protocol.CandidatePayload{
		TargetID:  targetID,
		Candidate: candidate,
	})
}

// ReplaceOutgoingTracks implements the media controller's link updater.
func (s *Session) ReplaceOutgoingTracks(tracks ...webrtc.TrackLocal) error {
	return s.links.ReplaceOutgoingTracks(tracks...)
}

// onRemoteTrack drains inbound RTP so the link keeps flowing. Rendering is
// up to a consumer layered on top; this client only tracks liveness.
func (s *Session) onRemoteTrack(peerID string, track *webrtc.TrackRemote) {
	s.post(func() { s.receiving[peerID]++ })

	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := track.Read(buf); err != nil {
				if !errors.Is(err, io.EOF) {
					s.log.Debug("remote track ended", "from", peerID, "error", err)
				}
				s.post(func() {
					if s.receiving[peerID] > 0 {
						s.receiving[peerID]--
					}
				})
				return
			}
		}
	}()
}

// post hands a closure to the event loop. Dropped once the session stopped.
func (s *Session) post(fn func()) {
	select {
	case s.intents <- fn:
	case <-s.done:
	}
}

func (s *Session) send(msgType string, payload any) {
	if err := s.cfg.Transport.Send(msgType, payload); err != nil {
		s.log.Warn("signaling send failed", "type", msgType, "error", err)
	}
}

func (s *Session) publish(err error) {
	if s.cfg.OnUpdate == nil {
		return
	}
	s.cfg.OnUpdate(s.snapshot(err))
}

func (s *Session) snapshot(err error) Snapshot {
	kind, _ := s.media.ActiveKind()

	peers := make([]PeerStatus, 0, s.roster.Len())
	for _, p := range s.roster.List() {
		status := PeerStatus{
			ID:            p.ID,
			Name:          p.Name,
			VideoEnabled:  p.VideoEnabled,
			AudioEnabled:  p.AudioEnabled,
			ScreenSharing: p.ScreenSharing,
			Receiving:     s.receiving[p.ID] > 0,
		}
		if role, ok := s.links.RoleOf(p.ID); ok {
			status.Role = role.String()
		}
		if state, ok := s.links.StateOf(p.ID); ok {
			status.LinkState = state.String()
		}
		peers = append(peers, status)
	}

	chatCopy := make([]chat.Message, len(s.chatLog))
	copy(chatCopy, s.chatLog)

	return Snapshot{
		RoomID:        s.cfg.RoomID,
		SelfID:        s.selfID,
		UserName:      s.cfg.UserName,
		VideoEnabled:  s.media.VideoEnabled(),
		AudioEnabled:  s.media.AudioEnabled(),
		ScreenSharing: kind == media.Screen,
		Peers:         peers,
		Chat:          chatCopy,
		Err:           err,
	}
}
