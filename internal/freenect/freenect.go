// Package freenect implements the device driver interfaces on top of
// libfreenect. Exactly one device handle is expected to be open at a time;
// the callback registry in callbacks.go routes the C frame callbacks back to
// the owning Device.
package freenect

/*
#cgo LDFLAGS: -lfreenect
#include <stdlib.h>
#include <libfreenect.h>

// Declared in callbacks.go.
extern void goVideoCallback(freenect_device *dev, void *video, uint32_t timestamp);
extern void goDepthCallback(freenect_device *dev, void *depth, uint32_t timestamp);

static void install_video_callback(freenect_device *dev) {
	freenect_set_video_callback(dev, goVideoCallback);
}

static void install_depth_callback(freenect_device *dev) {
	freenect_set_depth_callback(dev, goDepthCallback);
}
*/
import "C"
import (
	"fmt"

	"github.com/kinectcast/kinectcast/internal/device"
	"github.com/kinectcast/kinectcast/pkg/types"
)

// Driver is the libfreenect-backed sensor driver.
type Driver struct{}

// New returns the driver. Stateless; all state lives in the contexts it creates.
func New() *Driver {
	return &Driver{}
}

// Init creates a freenect context.
func (*Driver) Init() (device.Context, error) {
	var ctx *C.freenect_context
	if C.freenect_init(&ctx, nil) < 0 {
		return nil, fmt.Errorf("freenect_init failed")
	}
	return &Context{ctx: ctx}, nil
}

// Context wraps a freenect_context.
type Context struct {
	ctx *C.freenect_context
}

// Open opens the Kinect at the given index.
func (c *Context) Open(index int) (device.Device, error) {
	var dev *C.freenect_device
	if C.freenect_open_device(c.ctx, &dev, C.int(index)) < 0 {
		return nil, fmt.Errorf("could not open Kinect device %d", index)
	}
	d := &Device{dev: dev}
	registerDevice(dev, d)
	return d, nil
}

// ProcessEvents runs one bounded iteration of the libusb event loop. Frame
// callbacks fire synchronously from inside this call.
func (c *Context) ProcessEvents() error {
	if ret := C.freenect_process_events(c.ctx); ret < 0 {
		return fmt.Errorf("freenect_process_events returned %d", int(ret))
	}
	return nil
}

// Shutdown releases the context.
func (c *Context) Shutdown() {
	C.freenect_shutdown(c.ctx)
	c.ctx = nil
}

// Device wraps an opened freenect_device handle.
type Device struct {
	dev *C.freenect_device

	// Bytes of one video frame and samples of one depth frame, fixed when
	// the mode is set. Some IR modes pad extra scanlines; the pipeline
	// consumes exactly one 640x480 frame.
	videoBytes   int
	depthSamples int

	onVideo func([]byte)
	onDepth func([]uint16)
}

// SetVideoMode selects medium-resolution IR or RGB frames.
func (d *Device) SetVideoMode(m types.Modality) error {
	format := C.freenect_video_format(C.FREENECT_VIDEO_IR_8BIT)
	if m == types.ModalityColor {
		format = C.freenect_video_format(C.FREENECT_VIDEO_RGB)
	}
	mode := C.freenect_find_video_mode(C.FREENECT_RESOLUTION_MEDIUM, format)
	if C.freenect_set_video_mode(d.dev, mode) < 0 {
		return fmt.Errorf("could not set the %s video mode", m)
	}
	d.videoBytes = types.FramePixels * m.Channels()
	return nil
}

// SetDepthMode selects medium-resolution 11-bit depth frames.
func (d *Device) SetDepthMode() error {
	mode := C.freenect_find_depth_mode(C.FREENECT_RESOLUTION_MEDIUM, C.FREENECT_DEPTH_11BIT)
	if C.freenect_set_depth_mode(d.dev, mode) < 0 {
		return fmt.Errorf("could not set the depth mode")
	}
	d.depthSamples = types.FramePixels
	return nil
}

// SetVideoCallback registers fn for decoded video frames. The slice aliases
// libfreenect's buffer and is only valid during the call.
func (d *Device) SetVideoCallback(fn func(pixels []byte)) {
	d.onVideo = fn
	C.install_video_callback(d.dev)
}

// SetDepthCallback registers fn for decoded depth frames. The slice aliases
// libfreenect's buffer and is only valid during the call.
func (d *Device) SetDepthCallback(fn func(samples []uint16)) {
	d.onDepth = fn
	C.install_depth_callback(d.dev)
}

// StartVideo starts the video stream.
func (d *Device) StartVideo() error {
	if C.freenect_start_video(d.dev) < 0 {
		return fmt.Errorf("could not start the video stream")
	}
	return nil
}

// StopVideo stops the video stream.
func (d *Device) StopVideo() {
	C.freenect_stop_video(d.dev)
}

// StartDepth starts the depth stream.
func (d *Device) StartDepth() error {
	if C.freenect_start_depth(d.dev) < 0 {
		return fmt.Errorf("could not start the depth stream")
	}
	return nil
}

// StopDepth stops the depth stream.
func (d *Device) StopDepth() {
	C.freenect_stop_depth(d.dev)
}

// Close releases the device handle.
func (d *Device) Close() {
	unregisterDevice(d.dev)
	C.freenect_close_device(d.dev)
	d.dev = nil
}
