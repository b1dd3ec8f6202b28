package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kinectcast/kinectcast/internal/relay"
	"github.com/kinectcast/kinectcast/internal/transmit"
	"github.com/kinectcast/kinectcast/pkg/types"
)

// fakeScript drives the fake driver and records every lifecycle call in
// order, across all sessions.
type fakeScript struct {
	mu    sync.Mutex
	calls []string
	inits int

	// openErr, when set, decides whether Open fails for a session.
	openErr func(session int) error
	// armDevice, when set, plants failures on a freshly opened device.
	armDevice func(d *fakeDevice, session int)
	// onProcess scripts each ProcessEvents call of a session.
	onProcess func(session, call int, d *fakeDevice) error
}

func (s *fakeScript) record(ev string) {
	s.mu.Lock()
	s.calls = append(s.calls, ev)
	s.mu.Unlock()
}

func (s *fakeScript) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeDriver struct{ s *fakeScript }

func (d *fakeDriver) Init() (Context, error) {
	d.s.mu.Lock()
	d.s.inits++
	session := d.s.inits
	d.s.mu.Unlock()
	d.s.record("init")
	return &fakeContext{s: d.s, session: session}, nil
}

type fakeContext struct {
	s       *fakeScript
	session int
	calls   int
	dev     *fakeDevice
}

func (c *fakeContext) Open(index int) (Device, error) {
	if c.s.openErr != nil {
		if err := c.s.openErr(c.session); err != nil {
			c.s.record("open failed")
			return nil, err
		}
	}
	c.s.record("open")
	c.dev = &fakeDevice{s: c.s}
	if c.s.armDevice != nil {
		c.s.armDevice(c.dev, c.session)
	}
	return c.dev, nil
}

func (c *fakeContext) ProcessEvents() error {
	c.calls++
	if c.s.onProcess == nil {
		return nil
	}
	return c.s.onProcess(c.session, c.calls, c.dev)
}

func (c *fakeContext) Shutdown() { c.s.record("shutdown") }

type fakeDevice struct {
	s *fakeScript

	onVideo func([]byte)
	onDepth func([]uint16)

	videoModeErr  error
	depthModeErr  error
	startVideoErr error
	startDepthErr error
}

func (d *fakeDevice) SetVideoMode(m types.Modality) error {
	d.s.record("set video mode " + m.String())
	return d.videoModeErr
}

func (d *fakeDevice) SetDepthMode() error {
	d.s.record("set depth mode")
	return d.depthModeErr
}

func (d *fakeDevice) SetVideoCallback(fn func([]byte))   { d.onVideo = fn }
func (d *fakeDevice) SetDepthCallback(fn func([]uint16)) { d.onDepth = fn }

func (d *fakeDevice) StartVideo() error {
	d.s.record("start video")
	return d.startVideoErr
}

func (d *fakeDevice) StopVideo() { d.s.record("stop video") }

func (d *fakeDevice) StartDepth() error {
	d.s.record("start depth")
	return d.startDepthErr
}

func (d *fakeDevice) StopDepth() { d.s.record("stop depth") }
func (d *fakeDevice) Close()     { d.s.record("close device") }

// fakeSender keeps the first 8 bytes of every frame it was handed.
type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *fakeSender) Send(f *transmit.VideoFrame) {
	head := append([]byte(nil), f.Data[:8]...)
	s.mu.Lock()
	s.frames = append(s.frames, head)
	s.mu.Unlock()
}

func (s *fakeSender) Close() {}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeSender) frame(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i]
}

func testSupervisor(s *fakeScript, stream types.StreamConfig, video, depth transmit.Sender) *Supervisor {
	return NewSupervisor(&fakeDriver{s: s}, SupervisorConfig{
		Stream:  stream,
		Backoff: time.Millisecond,
		Tick:    time.Millisecond,
	}, relay.New(), video, depth)
}

func runAndWait(t *testing.T, sv *Supervisor, ctx context.Context) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		sv.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("supervisor did not stop")
	}
}

// assertSubsequence checks that want appears in calls in order (not
// necessarily adjacent).
func assertSubsequence(t *testing.T, calls []string, want ...string) {
	t.Helper()
	i := 0
	for _, c := range calls {
		if i < len(want) && c == want[i] {
			i++
		}
	}
	if i != len(want) {
		t.Fatalf("call sequence missing %q (matched %d of %v) in:\n%v", want[i], i, want, calls)
	}
}

func contains(calls []string, ev string) bool {
	for _, c := range calls {
		if c == ev {
			return true
		}
	}
	return false
}

func TestStreamErrorTearsDownAndReconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeScript{}
	s.onProcess = func(session, call int, d *fakeDevice) error {
		switch {
		case session == 1 && call == 1:
			d.onVideo([]byte{5})
			d.onDepth([]uint16{2047})
			return nil
		case session == 1:
			return errors.New("USB transfer fault")
		case session == 2 && call == 1:
			d.onVideo([]byte{9})
			cancel()
			return nil
		default:
			return nil
		}
	}

	videoSender := &fakeSender{}
	depthSender := &fakeSender{}
	sv := testSupervisor(s, types.StreamConfig{Brightness: true, Depth: true}, videoSender, depthSender)
	runAndWait(t, sv, ctx)

	calls := s.recorded()

	// Session 1 configures video before depth, tears down video before depth,
	// releases the handle and context, and only then reopens.
	assertSubsequence(t, calls,
		"init", "open",
		"set video mode ir", "start video",
		"set depth mode", "start depth",
		"stop video", "stop depth", "close device", "shutdown",
		"init", "open",
	)

	stats := sv.Stats()
	if stats.Reconnects != 2 {
		t.Fatalf("Reconnects = %d, want 2", stats.Reconnects)
	}
	if stats.StreamErrors != 1 {
		t.Fatalf("StreamErrors = %d, want 1", stats.StreamErrors)
	}

	// Same senders served both sessions.
	if videoSender.count() < 2 {
		t.Fatalf("video sender got %d frames, want at least 2 (one per session)", videoSender.count())
	}
	if depthSender.count() < 1 {
		t.Fatalf("depth sender got %d frames, want at least 1", depthSender.count())
	}

	// IR sample 5 replicated to B,G,R with opaque fourth channel.
	head := videoSender.frame(0)
	if head[0] != 5 || head[1] != 5 || head[2] != 5 || head[3] != 255 {
		t.Fatalf("video frame head = %v, want (5,5,5,255,...)", head)
	}
	// Depth 2047 maps to full white.
	head = depthSender.frame(0)
	if head[0] != 255 || head[1] != 255 || head[2] != 255 || head[3] != 255 {
		t.Fatalf("depth frame head = %v, want (255,255,255,255,...)", head)
	}
}

func TestOpenFailureRetriesForever(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := &fakeScript{
		openErr: func(int) error { return errors.New("no device") },
	}
	sv := testSupervisor(s, types.StreamConfig{Brightness: true}, &fakeSender{}, nil)
	runAndWait(t, sv, ctx)

	stats := sv.Stats()
	if stats.ConnectFailures < 2 {
		t.Fatalf("ConnectFailures = %d, want at least 2 retries", stats.ConnectFailures)
	}
	if stats.Reconnects != 0 {
		t.Fatalf("Reconnects = %d, want 0", stats.Reconnects)
	}
	// Each failed open releases the driver context before the retry.
	assertSubsequence(t, s.recorded(), "init", "open failed", "shutdown", "init", "open failed", "shutdown")
	if sv.State() != StateDisconnected {
		t.Fatalf("final state = %s, want disconnected", sv.State())
	}
}

func TestDepthStartFailureStopsVideoBeforeClosing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeScript{}
	s.armDevice = func(d *fakeDevice, session int) {
		if session == 1 {
			d.startDepthErr = errors.New("depth stream refused")
		}
	}
	s.onProcess = func(session, call int, d *fakeDevice) error {
		// Session 2 configures cleanly; stop the test there.
		cancel()
		return nil
	}

	sv := testSupervisor(s, types.StreamConfig{Color: true, Depth: true}, &fakeSender{}, &fakeSender{})
	runAndWait(t, sv, ctx)

	calls := s.recorded()
	assertSubsequence(t, calls,
		"start video", "set depth mode", "start depth", // session 1 fails here
		"stop video", "close device", "shutdown", // depth never started, so no stop depth
		"init", "open",
	)

	// The failed session must not stop a depth stream it never started: the
	// first "stop depth" may only appear after the second (successful)
	// "start depth", i.e. in session 2's shutdown teardown.
	for i, c := range calls {
		if c == "stop depth" {
			assertSubsequence(t, calls[:i+1], "start depth", "start depth", "stop depth")
			break
		}
	}

	if sv.Stats().ConnectFailures != 1 {
		t.Fatalf("ConnectFailures = %d, want 1", sv.Stats().ConnectFailures)
	}
}

func TestModalitiesDrainIndependently(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeScript{}
	s.onProcess = func(session, call int, d *fakeDevice) error {
		if call == 1 {
			d.onDepth([]uint16{0})
			return nil
		}
		cancel()
		return nil
	}

	videoSender := &fakeSender{}
	depthSender := &fakeSender{}
	sv := testSupervisor(s, types.StreamConfig{Brightness: true, Depth: true}, videoSender, depthSender)
	runAndWait(t, sv, ctx)

	if depthSender.count() != 1 {
		t.Fatalf("depth sender got %d frames, want 1", depthSender.count())
	}
	if videoSender.count() != 0 {
		t.Fatalf("video sender got %d frames, want 0 (no video frame was ever fresh)", videoSender.count())
	}
}

func TestColorFramesAreChannelReversed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeScript{}
	s.onProcess = func(session, call int, d *fakeDevice) error {
		if call == 1 {
			d.onVideo([]byte{1, 2, 3}) // one RGB pixel
			return nil
		}
		cancel()
		return nil
	}

	videoSender := &fakeSender{}
	sv := testSupervisor(s, types.StreamConfig{Color: true}, videoSender, nil)
	runAndWait(t, sv, ctx)

	if videoSender.count() != 1 {
		t.Fatalf("video sender got %d frames, want 1", videoSender.count())
	}
	head := videoSender.frame(0)
	if head[0] != 3 || head[1] != 2 || head[2] != 1 || head[3] != 255 {
		t.Fatalf("color frame head = %v, want (3,2,1,255,...)", head)
	}

	calls := s.recorded()
	if contains(calls, "set depth mode") || contains(calls, "start depth") {
		t.Fatalf("depth configured despite being disabled: %v", calls)
	}
}

func TestOutputFrameParameters(t *testing.T) {
	f := outputFrame(make([]byte, types.OutputSize))
	if f.Width != 640 || f.Height != 480 {
		t.Fatalf("dimensions = %dx%d", f.Width, f.Height)
	}
	if f.FrameRateN != 30 || f.FrameRateD != 1 {
		t.Fatalf("frame rate = %d/%d", f.FrameRateN, f.FrameRateD)
	}
	if f.Stride != 640*4 {
		t.Fatalf("stride = %d", f.Stride)
	}
	if want := float32(640) / float32(480); f.AspectRatio != want {
		t.Fatalf("aspect = %f, want %f", f.AspectRatio, want)
	}
}
