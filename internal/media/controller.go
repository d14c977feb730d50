package media

import (
	"fmt"
	"log/slog"

	"github.com/pion/webrtc/v4"
)

// LinkUpdater replaces outgoing tracks on every connected peer link without
// renegotiating. Implemented by the peer link manager.
type LinkUpdater interface {
	ReplaceOutgoingTracks(tracks ...webrtc.TrackLocal) error
}

// Controller owns the single active local source and the toggle state that
// survives source switches. All methods are called from the session event
// loop; OnScreenEnded is the only callback that crosses goroutines and the
// owner must route it back into the loop.
type Controller struct {
	log *slog.Logger
	acq Acquirer

	links LinkUpdater

	active       *Source
	videoEnabled bool
	audioEnabled bool

	// OnScreenEnded fires when the active screen capture ends outside the
	// app (for example the shared window closed). Fired from the capture
	// goroutine.
	OnScreenEnded func()
}

func NewController(log *slog.Logger, acq Acquirer, links LinkUpdater) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		log:          log,
		acq:          acq,
		links:        links,
		videoEnabled: true,
		audioEnabled: true,
	}
}

// StartCamera acquires the camera and microphone as the initial source.
// Must run before any peer link exists; links pull tracks via Tracks.
func (c *Controller) StartCamera() error {
	if c.active != nil {
		return ErrSourceActive
	}

	source, err := c.acq.AcquireCamera()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAcquisitionDenied, err)
	}

	c.active = source
	c.applyToggles()
	c.log.Info("camera source started", "audio", source.Audio != nil)
	return nil
}

// StartScreenShare acquires display capture and switches every connected
// link onto it. The camera is released only after every link swapped over.
func (c *Controller) StartScreenShare() error {
	if c.active == nil {
		return ErrNoSource
	}
	if c.active.Kind == Screen {
		return ErrSourceActive
	}

	next, err := c.acq.AcquireDisplay()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAcquisitionDenied, err)
	}

	if err := c.switchTo(next); err != nil {
		return err
	}

	next.OnEnded(func() {
		if c.OnScreenEnded != nil {
			c.OnScreenEnded()
		}
	})

	c.log.Info("screen share started", "system_audio", !next.adoptedAudio && next.Audio != nil)
	return nil
}

// StopScreenShare switches back to the camera. The screen capture is
// released only after every link swapped over.
func (c *Controller) StopScreenShare() error {
	if c.active == nil {
		return ErrNoSource
	}
	if c.active.Kind != Screen {
		return ErrNotSharing
	}

	next, err := c.acq.AcquireCamera()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAcquisitionDenied, err)
	}

	if err := c.switchTo(next); err != nil {
		return err
	}

	c.log.Info("screen share stopped, camera restored")
	return nil
}

// switchTo replaces tracks in place on every connected link, then releases
// the previous source. On failure the new source is released and the old
// one stays active; links that swapped before the failure are pointed back
// at the old tracks first, so none keeps feeding from a released source.
// Audio adoption happens only after the swap succeeds, otherwise releasing
// the failed source would take the microphone down with it.
func (c *Controller) switchTo(next *Source) error {
	old := c.active

	replace := []webrtc.TrackLocal{next.Video}
	if next.Audio != nil {
		replace = append(replace, next.Audio)
	}

	if err := c.links.ReplaceOutgoingTracks(replace...); err != nil {
		restore := []webrtc.TrackLocal{old.Video}
		if old.Audio != nil {
			restore = append(restore, old.Audio)
		}
		if rerr := c.links.ReplaceOutgoingTracks(restore...); rerr != nil {
			c.log.Warn("restoring previous source after failed switch", "error", rerr)
		}
		next.close()
		return fmt.Errorf("switch local source: %w", err)
	}

	if next.Audio == nil && old.Audio != nil {
		next.adoptAudio(old)
	}
	old.close()
	c.active = next
	c.applyToggles()
	return nil
}

// SetVideoEnabled flips the outgoing video mute flag. Purely local; the
// caller broadcasts the toggle event, and no peer link state changes.
func (c *Controller) SetVideoEnabled(enabled bool) {
	c.videoEnabled = enabled
	c.applyToggles()
}

// SetAudioEnabled flips the outgoing audio mute flag.
func (c *Controller) SetAudioEnabled(enabled bool) {
	c.audioEnabled = enabled
	c.applyToggles()
}

func (c *Controller) applyToggles() {
	if c.active == nil {
		return
	}
	if c.active.Video != nil {
		c.active.Video.SetEnabled(c.videoEnabled)
	}
	if c.active.Audio != nil {
		c.active.Audio.SetEnabled(c.audioEnabled)
	}
}

// VideoEnabled reports the outgoing video toggle.
func (c *Controller) VideoEnabled() bool { return c.videoEnabled }

// AudioEnabled reports the outgoing audio toggle.
func (c *Controller) AudioEnabled() bool { return c.audioEnabled }

// ActiveKind reports which source is live.
func (c *Controller) ActiveKind() (SourceKind, bool) {
	if c.active == nil {
		return Camera, false
	}
	return c.active.Kind, true
}

// Tracks implements the track source read by peer links.
func (c *Controller) Tracks() []webrtc.TrackLocal {
	if c.active == nil {
		return nil
	}
	return c.active.Tracks()
}

// Stop releases the active source, if any.
func (c *Controller) Stop() {
	if c.active == nil {
		return
	}
	c.active.close()
	c.active = nil
}
