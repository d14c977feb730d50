package media

import (
	"fmt"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"

	// Driver registration. Importing is what makes the devices visible.
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	_ "github.com/pion/mediadevices/pkg/driver/screen"
)

const (
	captureWidth  = 1280
	captureHeight = 720
)

// DeviceAcquirer captures real devices through pion/mediadevices.
type DeviceAcquirer struct {
	codecs *mediadevices.CodecSelector
}

// NewDeviceAcquirer prepares VP8 video and Opus audio encoders.
func NewDeviceAcquirer() (*DeviceAcquirer, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("init vp8 encoder: %w", err)
	}
	vpxParams.BitRate = 1_000_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("init opus encoder: %w", err)
	}

	return &DeviceAcquirer{
		codecs: mediadevices.NewCodecSelector(
			mediadevices.WithVideoEncoders(&vpxParams),
			mediadevices.WithAudioEncoders(&opusParams),
		),
	}, nil
}

// AcquireCamera captures camera video and microphone audio.
func (a *DeviceAcquirer) AcquireCamera() (*Source, error) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.FrameFormat = prop.FrameFormat(frame.FormatI420)
			c.Width = prop.Int(captureWidth)
			c.Height = prop.Int(captureHeight)
		},
		Audio: func(c *mediadevices.MediaTrackConstraints) {},
		Codec: a.codecs,
	})
	if err != nil {
		return nil, err
	}
	return a.sourceFromStream(Camera, stream)
}

// AcquireDisplay captures the screen. System audio capture depends on the
// platform driver; the source simply has no audio track when unavailable.
func (a *DeviceAcquirer) AcquireDisplay() (*Source, error) {
	stream, err := mediadevices.GetDisplayMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.FrameFormat = prop.FrameFormat(frame.FormatI420)
		},
		Codec: a.codecs,
	})
	if err != nil {
		return nil, err
	}
	return a.sourceFromStream(Screen, stream)
}

func (a *DeviceAcquirer) sourceFromStream(kind SourceKind, stream mediadevices.MediaStream) (*Source, error) {
	videoTracks := stream.GetVideoTracks()
	if len(videoTracks) == 0 {
		return nil, fmt.Errorf("capture produced no video track")
	}
	videoTrack := videoTracks[0].(mediadevices.Track)

	var source *Source

	var audio Track
	var stopAudio func()
	if audioTracks := stream.GetAudioTracks(); len(audioTracks) > 0 {
		audioTrack := audioTracks[0].(mediadevices.Track)
		audio = NewTrack(audioTrack)
		stopAudio = func() { audioTrack.Close() }
	}

	source = NewSource(kind,
		NewTrack(videoTrack), audio,
		func() { videoTrack.Close() }, stopAudio,
	)

	videoTrack.OnEnded(func(error) {
		source.Ended()
	})

	return source, nil
}
