package device

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kinectcast/kinectcast/internal/convert"
	"github.com/kinectcast/kinectcast/internal/logger"
	"github.com/kinectcast/kinectcast/internal/relay"
	"github.com/kinectcast/kinectcast/internal/transmit"
	"github.com/kinectcast/kinectcast/pkg/types"
)

// State names one phase of the reconnect lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateOpening
	StateConfiguring
	StateStreaming
	StateErrorTeardown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateOpening:
		return "opening"
	case StateConfiguring:
		return "configuring"
	case StateStreaming:
		return "streaming"
	case StateErrorTeardown:
		return "teardown"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const (
	// DefaultBackoff is the fixed delay between failed connection attempts.
	// Constant rather than exponential: a missing device is a rare,
	// operator-visible condition, not a high-frequency failure.
	DefaultBackoff = 5 * time.Second

	// DefaultTick bounds the publish loop's CPU use at roughly 100 Hz.
	DefaultTick = 10 * time.Millisecond
)

// SupervisorConfig tunes the reconnect loop. Zero values pick the defaults.
type SupervisorConfig struct {
	Stream      types.StreamConfig
	DeviceIndex int
	Backoff     time.Duration
	Tick        time.Duration
}

// Supervisor repeatedly establishes a device session, streams frames through
// the relay to the senders until the driver reports an error, tears the
// session down and retries after a fixed backoff. It never gives up on its
// own; only context cancellation stops it.
type Supervisor struct {
	drv         Driver
	cfg         SupervisorConfig
	rly         *relay.Relay
	videoSender transmit.Sender // nil unless a video modality is enabled
	depthSender transmit.Sender // nil unless depth is enabled

	state           atomic.Int32
	videoFramesSent atomic.Uint64
	depthFramesSent atomic.Uint64
	reconnects      atomic.Uint64
	connectFailures atomic.Uint64
	streamErrors    atomic.Uint64
}

// Stats is one consistent-enough read of the supervisor's counters.
type Stats struct {
	State           State
	VideoFramesSent uint64
	DepthFramesSent uint64
	Reconnects      uint64
	ConnectFailures uint64
	StreamErrors    uint64
}

// NewSupervisor wires the supervisor to its collaborators. Senders may be nil
// for disabled modalities; frames for a nil sender are never drained.
func NewSupervisor(drv Driver, cfg SupervisorConfig, rly *relay.Relay, videoSender, depthSender transmit.Sender) *Supervisor {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	return &Supervisor{
		drv:         drv,
		cfg:         cfg,
		rly:         rly,
		videoSender: videoSender,
		depthSender: depthSender,
	}
}

// State returns the current lifecycle state.
func (sv *Supervisor) State() State {
	return State(sv.state.Load())
}

// Stats returns the lifetime counters.
func (sv *Supervisor) Stats() Stats {
	return Stats{
		State:           sv.State(),
		VideoFramesSent: sv.videoFramesSent.Load(),
		DepthFramesSent: sv.depthFramesSent.Load(),
		Reconnects:      sv.reconnects.Load(),
		ConnectFailures: sv.connectFailures.Load(),
		StreamErrors:    sv.streamErrors.Load(),
	}
}

func (sv *Supervisor) setState(s State) {
	sv.state.Store(int32(s))
}

// Run drives the reconnect state machine until ctx is cancelled. The first
// connection attempt starts immediately; every failure waits the fixed
// backoff before the next one.
func (sv *Supervisor) Run(ctx context.Context) {
	sv.setState(StateDisconnected)

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			sv.setState(StateDisconnected)
			if !sleepCtx(ctx, sv.cfg.Backoff) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		sv.setState(StateOpening)
		sess, err := Open(sv.drv, sv.cfg.DeviceIndex)
		if err != nil {
			sv.connectFailures.Add(1)
			logger.Warn("Supervisor", "No device found: %v. Retrying in %s...", err, sv.cfg.Backoff)
			continue
		}

		sv.setState(StateConfiguring)
		if err := sess.Configure(sv.cfg.Stream, sv.rly); err != nil {
			sv.connectFailures.Add(1)
			logger.Warn("Supervisor", "Device configuration failed: %v. Reconnecting in %s...", err, sv.cfg.Backoff)
			sess.Close()
			continue
		}

		sv.reconnects.Add(1)
		sv.setState(StateStreaming)
		logger.Info("Supervisor", "Kinect connected. Streaming data over the network...")

		err = sv.stream(ctx, sess)

		sv.setState(StateErrorTeardown)
		sess.Close()

		if ctx.Err() != nil {
			sv.setState(StateDisconnected)
			logger.Info("Supervisor", "Shutdown requested, device released")
			return
		}

		sv.streamErrors.Add(1)
		logger.Warn("Supervisor", "Connection lost: %v. Attempting to reconnect in %s...", err, sv.cfg.Backoff)
	}
}

// stream is the publish loop: poll driver events once, drain whatever frames
// arrived, convert and send them, sleep one tick. Each modality is drained
// independently; a fresh depth frame goes out even when no video frame was
// ready that tick. Returns the poll error that ended the session, or ctx.Err
// on cancellation.
func (sv *Supervisor) stream(ctx context.Context, sess *Session) error {
	var (
		videoRaw []byte
		depthRaw []uint16
		// Separate output buffers per sender: the sender contract keeps a
		// buffer alive until the next Send on the same sender.
		videoOut []byte
		depthOut []byte
	)

	ticker := time.NewTicker(sv.cfg.Tick)
	defer ticker.Stop()

	for {
		if err := sess.ProcessEvents(); err != nil {
			return fmt.Errorf("event poll: %w", err)
		}

		if sv.videoSender != nil {
			var ok bool
			if videoRaw, ok = sv.rly.TryDrainVideo(videoRaw); ok {
				if videoOut == nil {
					videoOut = make([]byte, types.OutputSize)
				}
				switch sv.cfg.Stream.VideoModality() {
				case types.ModalityColor:
					convert.RGBToBGRA(videoRaw, videoOut)
				default:
					convert.GrayToBGRA(videoRaw, videoOut)
				}
				sv.videoSender.Send(outputFrame(videoOut))
				sv.videoFramesSent.Add(1)
			}
		}

		if sv.depthSender != nil {
			var ok bool
			if depthRaw, ok = sv.rly.TryDrainDepth(depthRaw); ok {
				if depthOut == nil {
					depthOut = make([]byte, types.OutputSize)
				}
				convert.DepthToBGRA(depthRaw, depthOut)
				sv.depthSender.Send(outputFrame(depthOut))
				sv.depthFramesSent.Add(1)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// outputFrame wraps a converted BGRX buffer with the fixed stream parameters.
func outputFrame(pixels []byte) *transmit.VideoFrame {
	return &transmit.VideoFrame{
		Width:       types.FrameWidth,
		Height:      types.FrameHeight,
		FrameRateN:  types.FrameRateN,
		FrameRateD:  types.FrameRateD,
		AspectRatio: float32(types.FrameWidth) / float32(types.FrameHeight),
		Stride:      types.OutputStride,
		Data:        pixels,
	}
}

// sleepCtx waits d or until ctx is cancelled; false means cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
