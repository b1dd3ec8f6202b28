package device

import (
	"fmt"

	"github.com/kinectcast/kinectcast/internal/relay"
	"github.com/kinectcast/kinectcast/pkg/types"
)

// Session owns one opened sensor handle plus the driver context it was opened
// from. It is created and destroyed by a single supervisor iteration; any
// streaming error destroys it before the next connection attempt.
type Session struct {
	ctx Context
	dev Device
	cfg types.StreamConfig

	videoStarted bool
	depthStarted bool
}

// Open initializes the driver and opens the device at the given index. The
// returned session is not yet streaming; call Configure next. On failure all
// partially acquired driver state is released before returning.
func Open(drv Driver, index int) (*Session, error) {
	ctx, err := drv.Init()
	if err != nil {
		return nil, fmt.Errorf("driver init: %w", err)
	}
	dev, err := ctx.Open(index)
	if err != nil {
		ctx.Shutdown()
		return nil, fmt.Errorf("open device %d: %w", index, err)
	}
	return &Session{ctx: ctx, dev: dev}, nil
}

// Configure sets the frame mode, registers the relay-backed callback and
// starts the stream for each enabled modality, video first. On error the
// caller must Close the session; Close stops whatever was already started.
func (s *Session) Configure(cfg types.StreamConfig, rly *relay.Relay) error {
	s.cfg = cfg

	if cfg.Video() {
		s.dev.SetVideoCallback(rly.PublishVideo)
		if err := s.dev.SetVideoMode(cfg.VideoModality()); err != nil {
			return fmt.Errorf("set %s video mode: %w", cfg.VideoModality(), err)
		}
		if err := s.dev.StartVideo(); err != nil {
			return fmt.Errorf("start video stream: %w", err)
		}
		s.videoStarted = true
	}

	if cfg.Depth {
		s.dev.SetDepthCallback(rly.PublishDepth)
		if err := s.dev.SetDepthMode(); err != nil {
			return fmt.Errorf("set depth mode: %w", err)
		}
		if err := s.dev.StartDepth(); err != nil {
			return fmt.Errorf("start depth stream: %w", err)
		}
		s.depthStarted = true
	}

	return nil
}

// ProcessEvents drives one iteration of the driver's event loop.
func (s *Session) ProcessEvents() error {
	return s.ctx.ProcessEvents()
}

// Close stops the started streams (video before depth), closes the device
// handle and releases the driver context. Safe to call after a partial
// Configure.
func (s *Session) Close() {
	if s.videoStarted {
		s.dev.StopVideo()
		s.videoStarted = false
	}
	if s.depthStarted {
		s.dev.StopDepth()
		s.depthStarted = false
	}
	s.dev.Close()
	s.ctx.Shutdown()
}
