// Package rtc adapts pion/webrtc to the peer-connection capability the
// link state machine drives.
package rtc

import (
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/priyanshu442004/WatchParty/internal/config"
	"github.com/priyanshu442004/WatchParty/internal/peerlink"
)

// NewFactory builds peer connections configured with the STUN/TURN servers
// from the client config.
func NewFactory(cfg *config.Config) peerlink.Factory {
	return func() (peerlink.PeerConnection, error) {
		return newPeerConnection(cfg)
	}
}

func newPeerConnection(cfg *config.Config) (*Conn, error) {
	iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if turnServers != nil && cfg.ForceRelay {
		policy = webrtc.ICETransportPolicyRelay
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return &Conn{pc: pc}, nil
}

// Conn implements peerlink.PeerConnection over a pion peer connection.
type Conn struct {
	pc *webrtc.PeerConnection
}

func (c *Conn) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *Conn) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *Conn) SetLocalDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *Conn) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *Conn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

func (c *Conn) AddTrack(track webrtc.TrackLocal) (peerlink.Sender, error) {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	return &rtpSender{sender: sender}, nil
}

func (c *Conn) CreateDataChannel(label string) (peerlink.DataChannel, error) {
	ordered := true
	dc, err := c.pc.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, err
	}
	return &dataChannel{dc: dc}, nil
}

func (c *Conn) OnICECandidate(fn func(candidate webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		fn(candidate.ToJSON())
	})
}

func (c *Conn) OnTrack(fn func(track *webrtc.TrackRemote)) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(track)
	})
}

func (c *Conn) OnDataChannel(fn func(dc peerlink.DataChannel)) {
	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		fn(&dataChannel{dc: dc})
	})
}

func (c *Conn) Close() error {
	return c.pc.Close()
}

type rtpSender struct {
	sender *webrtc.RTPSender
}

func (s *rtpSender) ReplaceTrack(track webrtc.TrackLocal) error {
	return s.sender.ReplaceTrack(track)
}

func (s *rtpSender) Track() webrtc.TrackLocal {
	return s.sender.Track()
}

type dataChannel struct {
	dc *webrtc.DataChannel
}

func (d *dataChannel) Label() string {
	return d.dc.Label()
}

func (d *dataChannel) Send(data []byte) error {
	return d.dc.Send(data)
}

func (d *dataChannel) OnOpen(fn func()) {
	d.dc.OnOpen(fn)
}

func (d *dataChannel) OnMessage(fn func(data []byte)) {
	d.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(msg.Data)
	})
}

func (d *dataChannel) Close() error {
	return d.dc.Close()
}
