package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyanshu442004/WatchParty/internal/media"
	"github.com/priyanshu442004/WatchParty/internal/peerlink"
	"github.com/priyanshu442004/WatchParty/internal/protocol"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   []*protocol.Message
	events chan protocol.Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan protocol.Event, 16)}
}

func (tr *fakeTransport) Send(msgType string, payload any) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	tr.mu.Lock()
	tr.sent = append(tr.sent, msg)
	tr.mu.Unlock()
	return nil
}

func (tr *fakeTransport) Events() <-chan protocol.Event { return tr.events }
func (tr *fakeTransport) Close()                        {}

func (tr *fakeTransport) sentOfType(msgType string) []*protocol.Message {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var out []*protocol.Message
	for _, msg := range tr.sent {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

type fakeLocalTrack struct {
	id   string
	kind webrtc.RTPCodecType
}

func (t *fakeLocalTrack) Bind(webrtc.TrackLocalContext) (webrtc.RTPCodecParameters, error) {
	return webrtc.RTPCodecParameters{}, nil
}
func (t *fakeLocalTrack) Unbind(webrtc.TrackLocalContext) error { return nil }
func (t *fakeLocalTrack) ID() string                            { return t.id }
func (t *fakeLocalTrack) RID() string                           { return "" }
func (t *fakeLocalTrack) StreamID() string                      { return "fake" }
func (t *fakeLocalTrack) Kind() webrtc.RTPCodecType             { return t.kind }

type fakeAcquirer struct {
	cameraErr error
}

func (a *fakeAcquirer) AcquireCamera() (*media.Source, error) {
	if a.cameraErr != nil {
		return nil, a.cameraErr
	}
	video := media.NewTrack(&fakeLocalTrack{id: "camera", kind: webrtc.RTPCodecTypeVideo})
	audio := media.NewTrack(&fakeLocalTrack{id: "mic", kind: webrtc.RTPCodecTypeAudio})
	return media.NewSource(media.Camera, video, audio, nil, nil), nil
}

func (a *fakeAcquirer) AcquireDisplay() (*media.Source, error) {
	video := media.NewTrack(&fakeLocalTrack{id: "screen", kind: webrtc.RTPCodecTypeVideo})
	return media.NewSource(media.Screen, video, nil, nil, nil), nil
}

type fakeSessionSender struct{ track webrtc.TrackLocal }

func (s *fakeSessionSender) ReplaceTrack(track webrtc.TrackLocal) error {
	s.track = track
	return nil
}
func (s *fakeSessionSender) Track() webrtc.TrackLocal { return s.track }

type fakeSessionDC struct{ label string }

func (d *fakeSessionDC) Label() string               { return d.label }
func (d *fakeSessionDC) Send([]byte) error           { return nil }
func (d *fakeSessionDC) OnOpen(func())               {}
func (d *fakeSessionDC) OnMessage(func(data []byte)) {}
func (d *fakeSessionDC) Close() error                { return nil }

type fakeSessionPC struct {
	mu      sync.Mutex
	tracks  []webrtc.TrackLocal
	remotes []webrtc.SessionDescription
}

func (pc *fakeSessionPC) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer"}, nil
}
func (pc *fakeSessionPC) CreateAnswer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer"}, nil
}
func (pc *fakeSessionPC) SetLocalDescription(webrtc.SessionDescription) error { return nil }
func (pc *fakeSessionPC) SetRemoteDescription(desc webrtc.SessionDescription) error {
	pc.mu.Lock()
	pc.remotes = append(pc.remotes, desc)
	pc.mu.Unlock()
	return nil
}
func (pc *fakeSessionPC) AddICECandidate(webrtc.ICECandidateInit) error { return nil }
func (pc *fakeSessionPC) AddTrack(track webrtc.TrackLocal) (peerlink.Sender, error) {
	pc.mu.Lock()
	pc.tracks = append(pc.tracks, track)
	pc.mu.Unlock()
	return &fakeSessionSender{track: track}, nil
}
func (pc *fakeSessionPC) CreateDataChannel(label string) (peerlink.DataChannel, error) {
	return &fakeSessionDC{label: label}, nil
}
func (pc *fakeSessionPC) OnICECandidate(func(webrtc.ICECandidateInit)) {}
func (pc *fakeSessionPC) OnTrack(func(*webrtc.TrackRemote))            {}
func (pc *fakeSessionPC) OnDataChannel(func(peerlink.DataChannel))     {}
func (pc *fakeSessionPC) Close() error                                 { return nil }

type sessionHarness struct {
	transport *fakeTransport
	acquirer  *fakeAcquirer
	session   *Session
	snaps     chan Snapshot
	runErr    chan error
	cancel    context.CancelFunc
}

func startSession(t *testing.T, acq *fakeAcquirer) *sessionHarness {
	t.Helper()

	h := &sessionHarness{
		transport: newFakeTransport(),
		acquirer:  acq,
		snaps:     make(chan Snapshot, 256),
		runErr:    make(chan error, 1),
	}

	h.session = New(Config{
		Transport: h.transport,
		NewConn:   func() (peerlink.PeerConnection, error) { return &fakeSessionPC{}, nil },
		Acquirer:  h.acquirer,
		RoomID:    "movie-night",
		UserName:  "Carol",
		OnUpdate:  func(snap Snapshot) { h.snaps <- snap },
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runErr <- h.session.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.runErr:
		case <-time.After(2 * time.Second):
			t.Fatalf("session did not stop")
		}
	})

	return h
}

// waitSnap drains snapshots until one satisfies cond.
func (h *sessionHarness) waitSnap(t *testing.T, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-h.snaps:
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
			return Snapshot{}
		}
	}
}

func (h *sessionHarness) waitSent(t *testing.T, msgType string, n int) []*protocol.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := h.transport.sentOfType(msgType); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %s frames", n, msgType)
	return nil
}

func peerByID(snap Snapshot, id string) (PeerStatus, bool) {
	for _, p := range snap.Peers {
		if p.ID == id {
			return p, true
		}
	}
	return PeerStatus{}, false
}

func TestSession_AwaitsOffersFromExistingParticipants(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)

	h.transport.events <- protocol.RoomJoined{
		RoomID: "movie-night",
		SelfID: "carol",
		Participants: map[string]protocol.ParticipantInfo{
			"alice": {Name: "Alice", VideoEnabled: true, AudioEnabled: true},
			"bob":   {Name: "Bob", VideoEnabled: true, AudioEnabled: false},
		},
	}

	snap := h.waitSnap(t, "both peers in roster", func(s Snapshot) bool {
		return len(s.Peers) == 2
	})
	assert.Equal(t, "carol", snap.SelfID)
	for _, p := range snap.Peers {
		assert.Equal(t, "callee", p.Role, "everyone already present calls us")
		assert.Equal(t, "awaiting-offer", p.LinkState)
	}
	bob, ok := peerByID(snap, "bob")
	require.True(t, ok)
	assert.False(t, bob.AudioEnabled)
	assert.Empty(t, h.transport.sentOfType(protocol.TypeOffer),
		"the joiner never offers toward incumbents")

	// Incumbent offers complete the handshakes with our answers.
	h.transport.events <- protocol.OfferReceived{
		FromID: "alice",
		Offer:  webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"},
	}
	answers := h.waitSent(t, protocol.TypeAnswer, 1)
	var answer protocol.AnswerPayload
	require.NoError(t, json.Unmarshal(answers[0].Payload, &answer))
	assert.Equal(t, "alice", answer.TargetID)
	h.waitSnap(t, "alice connected", func(s Snapshot) bool {
		p, ok := peerByID(s, "alice")
		return ok && p.LinkState == "connected"
	})
}

func TestSession_CallsNewcomer(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)
	h.transport.events <- protocol.RoomJoined{RoomID: "movie-night", SelfID: "carol"}

	h.transport.events <- protocol.UserJoined{UserID: "dave", UserName: "Dave"}

	offers := h.waitSent(t, protocol.TypeOffer, 1)
	var offer protocol.OfferPayload
	require.NoError(t, json.Unmarshal(offers[0].Payload, &offer))
	assert.Equal(t, "dave", offer.TargetID)

	snap := h.waitSnap(t, "dave awaiting answer", func(s Snapshot) bool {
		p, ok := peerByID(s, "dave")
		return ok && p.LinkState == "awaiting-answer"
	})
	dave, _ := peerByID(snap, "dave")
	assert.Equal(t, "caller", dave.Role, "whoever was present first calls")

	h.transport.events <- protocol.AnswerReceived{
		FromID: "dave",
		Answer: webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"},
	}
	h.waitSnap(t, "dave connected", func(s Snapshot) bool {
		p, ok := peerByID(s, "dave")
		return ok && p.LinkState == "connected"
	})
}

// Join order drives roles: carol joins after alice and before dave, so she
// holds a callee link toward alice and a caller link toward dave, and the
// only offer she emits is addressed to dave.
func TestSession_RolesFollowJoinOrder(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)

	h.transport.events <- protocol.RoomJoined{
		RoomID: "movie-night",
		SelfID: "carol",
		Participants: map[string]protocol.ParticipantInfo{
			"alice": {Name: "Alice", VideoEnabled: true, AudioEnabled: true},
		},
	}
	h.transport.events <- protocol.UserJoined{UserID: "dave", UserName: "Dave"}

	snap := h.waitSnap(t, "both links formed", func(s Snapshot) bool {
		return len(s.Peers) == 2
	})
	alice, ok := peerByID(snap, "alice")
	require.True(t, ok)
	dave, ok := peerByID(snap, "dave")
	require.True(t, ok)
	assert.Equal(t, "callee", alice.Role)
	assert.Equal(t, "caller", dave.Role)

	offers := h.waitSent(t, protocol.TypeOffer, 1)
	require.Len(t, offers, 1)
	var offer protocol.OfferPayload
	require.NoError(t, json.Unmarshal(offers[0].Payload, &offer))
	assert.Equal(t, "dave", offer.TargetID)
}

func TestSession_UserLeftRemovesPeer(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)
	h.transport.events <- protocol.RoomJoined{RoomID: "movie-night", SelfID: "carol"}
	h.transport.events <- protocol.UserJoined{UserID: "dave", UserName: "Dave"}
	h.waitSnap(t, "dave present", func(s Snapshot) bool { return len(s.Peers) == 1 })

	h.transport.events <- protocol.UserLeft{UserID: "dave"}

	h.waitSnap(t, "dave gone", func(s Snapshot) bool { return len(s.Peers) == 0 })
}

func TestSession_TogglesAreAnnouncedNotRenegotiated(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)
	h.transport.events <- protocol.RoomJoined{RoomID: "movie-night", SelfID: "carol"}
	h.transport.events <- protocol.UserJoined{UserID: "dave", UserName: "Dave"}
	offersBefore := len(h.waitSent(t, protocol.TypeOffer, 1))

	h.session.ToggleVideo()

	toggles := h.waitSent(t, protocol.TypeToggleVideo, 1)
	var p protocol.TogglePayload
	require.NoError(t, json.Unmarshal(toggles[0].Payload, &p))
	assert.False(t, p.Enabled)

	h.waitSnap(t, "video off locally", func(s Snapshot) bool { return !s.VideoEnabled })
	assert.Len(t, h.transport.sentOfType(protocol.TypeOffer), offersBefore,
		"muting must not renegotiate")
}

func TestSession_RemoteToggleUpdatesRoster(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)
	h.transport.events <- protocol.RoomJoined{RoomID: "movie-night", SelfID: "carol"}
	h.transport.events <- protocol.UserJoined{UserID: "dave", UserName: "Dave"}
	h.waitSnap(t, "dave present", func(s Snapshot) bool { return len(s.Peers) == 1 })

	h.transport.events <- protocol.AudioToggled{UserID: "dave", Enabled: false}
	h.transport.events <- protocol.ScreenShareStarted{UserID: "dave"}

	h.waitSnap(t, "dave muted and sharing", func(s Snapshot) bool {
		p, ok := peerByID(s, "dave")
		return ok && !p.AudioEnabled && p.ScreenSharing
	})
}

func TestSession_ScreenShareLifecycle(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)
	h.transport.events <- protocol.RoomJoined{RoomID: "movie-night", SelfID: "carol"}

	h.session.StartScreenShare()
	h.waitSent(t, protocol.TypeStartScreenShare, 1)
	h.waitSnap(t, "sharing", func(s Snapshot) bool { return s.ScreenSharing })

	h.session.StopScreenShare()
	h.waitSent(t, protocol.TypeStopScreenShare, 1)
	h.waitSnap(t, "not sharing", func(s Snapshot) bool { return !s.ScreenSharing })
}

func TestSession_ChannelDeathEndsRun(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)

	close(h.transport.events)

	select {
	case err := <-h.runErr:
		assert.ErrorIs(t, err, ErrChannelClosed)
		h.runErr <- err // keep cleanup happy
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after channel death")
	}
}

func TestSession_JoinRejectionIsFatal(t *testing.T) {
	h := startSession(t, &fakeAcquirer{})
	h.waitSent(t, protocol.TypeJoinRoom, 1)

	h.transport.events <- protocol.ServerError{Error: "already in a room"}

	select {
	case err := <-h.runErr:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already in a room")
		h.runErr <- err
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after join rejection")
	}
}

func TestSession_CameraDeniedAbortsJoin(t *testing.T) {
	h := startSession(t, &fakeAcquirer{cameraErr: errors.New("permission refused")})

	select {
	case err := <-h.runErr:
		assert.ErrorIs(t, err, media.ErrAcquisitionDenied)
		h.runErr <- err
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}
	assert.Empty(t, h.transport.sentOfType(protocol.TypeJoinRoom),
		"no join without local media")
}
