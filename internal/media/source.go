// Package media owns the single active local media source. Peer links read
// track references from here; only the controller mutates them.
package media

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
)

var (
	// ErrAcquisitionDenied means the camera, microphone or display could
	// not be captured (permission refused or device missing).
	ErrAcquisitionDenied = errors.New("media acquisition denied")

	ErrSourceActive = errors.New("a media source is already active")
	ErrNoSource     = errors.New("no active media source")
	ErrNotSharing   = errors.New("screen share is not active")
)

// SourceKind tags the active source. There is no "no source" kind: once
// media starts, exactly one of these is live.
type SourceKind int

const (
	Camera SourceKind = iota
	Screen
)

func (k SourceKind) String() string {
	if k == Screen {
		return "screen"
	}
	return "camera"
}

// Track is a local track whose enabled flag can be flipped without touching
// any peer link. Disabling mutes the payload; the sender and the session
// description stay as they are.
type Track interface {
	webrtc.TrackLocal
	SetEnabled(enabled bool)
	Enabled() bool
}

// switchableTrack wraps any local track with a mute flag.
type switchableTrack struct {
	webrtc.TrackLocal

	mu      sync.Mutex
	enabled bool
}

// NewTrack wraps a local track so its enabled state can be toggled.
func NewTrack(inner webrtc.TrackLocal) Track {
	return &switchableTrack{TrackLocal: inner, enabled: true}
}

func (t *switchableTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *switchableTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Source is one acquired capture: one video track and zero or one audio
// track, plus the release hooks for the underlying devices.
type Source struct {
	Kind  SourceKind
	Video Track
	Audio Track

	stopVideo func()
	stopAudio func()

	// adoptedAudio marks audio carried over from the previous source, so a
	// switch does not replace or release it.
	adoptedAudio bool

	mu      sync.Mutex
	onEnded func()
}

// NewSource builds a source from acquired tracks. Either audio or the stop
// hooks may be nil.
func NewSource(kind SourceKind, video, audio Track, stopVideo, stopAudio func()) *Source {
	return &Source{
		Kind:      kind,
		Video:     video,
		Audio:     audio,
		stopVideo: stopVideo,
		stopAudio: stopAudio,
	}
}

// Tracks lists the source's local tracks, video first.
func (s *Source) Tracks() []webrtc.TrackLocal {
	out := []webrtc.TrackLocal{}
	if s.Video != nil {
		out = append(out, s.Video)
	}
	if s.Audio != nil {
		out = append(out, s.Audio)
	}
	return out
}

// OnEnded registers the end-of-capture notification. Screen sources fire it
// when the user revokes sharing outside the app.
func (s *Source) OnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

// Ended is called by the acquirer when the underlying capture stops.
func (s *Source) Ended() {
	s.mu.Lock()
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// adoptAudio moves the audio track and its release hook from another
// source, typically to keep the microphone running across a switch to a
// screen share without system audio.
func (s *Source) adoptAudio(from *Source) {
	s.Audio = from.Audio
	s.stopAudio = from.stopAudio
	s.adoptedAudio = true
	from.Audio = nil
	from.stopAudio = nil
}

// close releases whatever devices this source still owns.
func (s *Source) close() {
	if s.stopVideo != nil {
		s.stopVideo()
		s.stopVideo = nil
	}
	if s.stopAudio != nil {
		s.stopAudio()
		s.stopAudio = nil
	}
}

// Acquirer is the abstract media-acquisition capability. The production
// implementation captures real devices; tests script synthetic sources.
type Acquirer interface {
	// AcquireCamera captures camera video plus microphone audio.
	AcquireCamera() (*Source, error)

	// AcquireDisplay captures the screen, optionally with system audio.
	AcquireDisplay() (*Source, error)
}
