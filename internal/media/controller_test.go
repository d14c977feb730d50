package media

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTrack struct {
	id   string
	kind webrtc.RTPCodecType
}

func (t *stubTrack) Bind(webrtc.TrackLocalContext) (webrtc.RTPCodecParameters, error) {
	return webrtc.RTPCodecParameters{}, nil
}
func (t *stubTrack) Unbind(webrtc.TrackLocalContext) error { return nil }
func (t *stubTrack) ID() string                            { return t.id }
func (t *stubTrack) RID() string                           { return "" }
func (t *stubTrack) StreamID() string                      { return "stub" }
func (t *stubTrack) Kind() webrtc.RTPCodecType             { return t.kind }

// releases counts device release calls per label so tests can assert that
// no device is released early and none is leaked.
type releases map[string]int

func (r releases) hook(label string) func() {
	return func() { r[label]++ }
}

type stubAcquirer struct {
	released releases

	cameraErr  error
	displayErr error

	// withSystemAudio controls whether display sources carry their own
	// audio track.
	withSystemAudio bool

	acquiredCameras  int
	acquiredDisplays int
	lastDisplay      *Source
}

func newStubAcquirer() *stubAcquirer {
	return &stubAcquirer{released: make(releases)}
}

func (a *stubAcquirer) AcquireCamera() (*Source, error) {
	if a.cameraErr != nil {
		return nil, a.cameraErr
	}
	a.acquiredCameras++
	video := NewTrack(&stubTrack{id: "camera-video", kind: webrtc.RTPCodecTypeVideo})
	audio := NewTrack(&stubTrack{id: "mic-audio", kind: webrtc.RTPCodecTypeAudio})
	return NewSource(Camera, video, audio,
		a.released.hook("camera-video"), a.released.hook("mic-audio")), nil
}

func (a *stubAcquirer) AcquireDisplay() (*Source, error) {
	if a.displayErr != nil {
		return nil, a.displayErr
	}
	a.acquiredDisplays++
	video := NewTrack(&stubTrack{id: "screen-video", kind: webrtc.RTPCodecTypeVideo})
	var audio Track
	var stopAudio func()
	if a.withSystemAudio {
		audio = NewTrack(&stubTrack{id: "system-audio", kind: webrtc.RTPCodecTypeAudio})
		stopAudio = a.released.hook("system-audio")
	}
	src := NewSource(Screen, video, audio, a.released.hook("screen-video"), stopAudio)
	a.lastDisplay = src
	return src, nil
}

type recordingUpdater struct {
	replaced [][]webrtc.TrackLocal

	// failNext makes that many calls fail with err before recording resumes.
	failNext int
	err      error
}

func (u *recordingUpdater) ReplaceOutgoingTracks(tracks ...webrtc.TrackLocal) error {
	if u.failNext > 0 {
		u.failNext--
		return u.err
	}
	u.replaced = append(u.replaced, tracks)
	return nil
}

func trackIDs(tracks []webrtc.TrackLocal) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID())
	}
	return out
}

func TestController_StartCamera(t *testing.T) {
	acq := newStubAcquirer()
	c := NewController(nil, acq, &recordingUpdater{})

	require.NoError(t, c.StartCamera())

	assert.Equal(t, []string{"camera-video", "mic-audio"}, trackIDs(c.Tracks()))
	assert.True(t, c.VideoEnabled())
	assert.True(t, c.AudioEnabled())
	kind, ok := c.ActiveKind()
	require.True(t, ok)
	assert.Equal(t, Camera, kind)

	assert.ErrorIs(t, c.StartCamera(), ErrSourceActive)
}

func TestController_StartCameraDenied(t *testing.T) {
	acq := newStubAcquirer()
	acq.cameraErr = errors.New("permission refused")
	c := NewController(nil, acq, &recordingUpdater{})

	err := c.StartCamera()

	assert.ErrorIs(t, err, ErrAcquisitionDenied)
	_, ok := c.ActiveKind()
	assert.False(t, ok)
}

func TestController_ScreenShareAdoptsMicrophone(t *testing.T) {
	acq := newStubAcquirer()
	updater := &recordingUpdater{}
	c := NewController(nil, acq, updater)
	require.NoError(t, c.StartCamera())

	require.NoError(t, c.StartScreenShare())

	// Only the video track is swapped; the mic keeps flowing untouched.
	require.Len(t, updater.replaced, 1)
	assert.Equal(t, []string{"screen-video"}, trackIDs(updater.replaced[0]))
	assert.Equal(t, []string{"screen-video", "mic-audio"}, trackIDs(c.Tracks()))

	assert.Equal(t, 1, acq.released["camera-video"], "camera released after the switch")
	assert.Zero(t, acq.released["mic-audio"], "adopted mic must not be released")
}

func TestController_ScreenShareWithSystemAudio(t *testing.T) {
	acq := newStubAcquirer()
	acq.withSystemAudio = true
	updater := &recordingUpdater{}
	c := NewController(nil, acq, updater)
	require.NoError(t, c.StartCamera())

	require.NoError(t, c.StartScreenShare())

	require.Len(t, updater.replaced, 1)
	assert.Equal(t, []string{"screen-video", "system-audio"}, trackIDs(updater.replaced[0]))
	assert.Equal(t, 1, acq.released["camera-video"])
	assert.Equal(t, 1, acq.released["mic-audio"], "mic released when the screen brings its own audio")
}

func TestController_FailedSwitchKeepsOldSource(t *testing.T) {
	acq := newStubAcquirer()
	updater := &recordingUpdater{failNext: 1, err: errors.New("link refused track")}
	c := NewController(nil, acq, updater)
	require.NoError(t, c.StartCamera())

	err := c.StartScreenShare()

	require.Error(t, err)
	assert.Equal(t, []string{"camera-video", "mic-audio"}, trackIDs(c.Tracks()))
	kind, _ := c.ActiveKind()
	assert.Equal(t, Camera, kind)
	assert.Equal(t, 1, acq.released["screen-video"], "failed screen capture is released")
	assert.Zero(t, acq.released["camera-video"])
	assert.Zero(t, acq.released["mic-audio"], "mic adopted by the failed source must come back")

	// Links that swapped before the failure are handed the camera tracks
	// back before the screen capture is released.
	require.Len(t, updater.replaced, 1)
	assert.Equal(t, []string{"camera-video", "mic-audio"}, trackIDs(updater.replaced[0]))
}

func TestController_StopScreenShareRestoresCamera(t *testing.T) {
	acq := newStubAcquirer()
	updater := &recordingUpdater{}
	c := NewController(nil, acq, updater)
	require.NoError(t, c.StartCamera())
	require.NoError(t, c.StartScreenShare())

	require.NoError(t, c.StopScreenShare())

	assert.Equal(t, []string{"camera-video", "mic-audio"}, trackIDs(c.Tracks()))
	kind, _ := c.ActiveKind()
	assert.Equal(t, Camera, kind)
	assert.Equal(t, 1, acq.released["screen-video"])
	assert.Equal(t, 2, acq.acquiredCameras)

	assert.ErrorIs(t, c.StopScreenShare(), ErrNotSharing)
}

func TestController_ScreenShareGuards(t *testing.T) {
	acq := newStubAcquirer()
	c := NewController(nil, acq, &recordingUpdater{})

	assert.ErrorIs(t, c.StartScreenShare(), ErrNoSource)

	require.NoError(t, c.StartCamera())
	require.NoError(t, c.StartScreenShare())
	assert.ErrorIs(t, c.StartScreenShare(), ErrSourceActive)
}

func TestController_TogglesSurviveSourceSwitch(t *testing.T) {
	acq := newStubAcquirer()
	c := NewController(nil, acq, &recordingUpdater{})
	require.NoError(t, c.StartCamera())

	c.SetVideoEnabled(false)
	c.SetAudioEnabled(false)
	require.NoError(t, c.StartScreenShare())

	assert.False(t, c.VideoEnabled())
	assert.False(t, c.AudioEnabled())

	tracks := c.Tracks()
	require.Len(t, tracks, 2)
	for _, track := range tracks {
		assert.False(t, track.(Track).Enabled())
	}
}

func TestController_ScreenEndedCallback(t *testing.T) {
	acq := newStubAcquirer()
	c := NewController(nil, acq, &recordingUpdater{})
	ended := false
	c.OnScreenEnded = func() { ended = true }
	require.NoError(t, c.StartCamera())
	require.NoError(t, c.StartScreenShare())

	acq.lastDisplay.Ended()

	assert.True(t, ended)
}

func TestController_StopReleasesEverything(t *testing.T) {
	acq := newStubAcquirer()
	c := NewController(nil, acq, &recordingUpdater{})
	require.NoError(t, c.StartCamera())

	c.Stop()

	assert.Equal(t, 1, acq.released["camera-video"])
	assert.Equal(t, 1, acq.released["mic-audio"])
	assert.Empty(t, c.Tracks())
	c.Stop() // idempotent
}
