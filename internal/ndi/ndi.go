// Package ndi implements the transmit interfaces on top of the NDI runtime.
package ndi

/*
#cgo LDFLAGS: -lndi
#include <stdlib.h>
#include <string.h>
#include <Processing.NDI.Lib.h>

static NDIlib_send_instance_t create_sender(const char *name) {
	NDIlib_send_create_t desc;
	memset(&desc, 0, sizeof(desc));
	desc.p_ndi_name = name;
	return NDIlib_send_create(&desc);
}

static void send_video(NDIlib_send_instance_t sender,
		int width, int height, int rate_n, int rate_d,
		float aspect, uint8_t *data, int stride) {
	NDIlib_video_frame_v2_t frame;
	memset(&frame, 0, sizeof(frame));
	frame.xres = width;
	frame.yres = height;
	frame.FourCC = NDIlib_FourCC_type_BGRX;
	frame.frame_rate_N = rate_n;
	frame.frame_rate_D = rate_d;
	frame.picture_aspect_ratio = aspect;
	frame.p_data = data;
	frame.line_stride_in_bytes = stride;
	NDIlib_send_send_video_v2(sender, &frame);
}
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/kinectcast/kinectcast/internal/logger"
	"github.com/kinectcast/kinectcast/internal/transmit"
)

// Library wraps the process-wide NDI runtime.
type Library struct{}

// Open initializes the NDI runtime. Failure here is fatal for the process;
// nothing works without the transmitter.
func Open() (*Library, error) {
	if !bool(C.NDIlib_initialize()) {
		return nil, fmt.Errorf("NDI initialization failed; is the NDI runtime installed?")
	}
	return &Library{}, nil
}

// CreateSender creates a named NDI source.
func (*Library) CreateSender(name string) (transmit.Sender, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	inst := C.create_sender(cName)
	if inst == nil {
		return nil, fmt.Errorf("failed to create NDI sender %q", name)
	}
	logger.Info("NDI", "Created sender %q", name)
	return &sender{inst: inst, name: name}, nil
}

// Close destroys the NDI runtime. All senders must be closed first.
func (*Library) Close() {
	C.NDIlib_destroy()
}

type sender struct {
	inst C.NDIlib_send_instance_t
	name string
}

// Send submits one BGRX frame. The send is synchronous; the pixel buffer can
// be reused as soon as it returns.
func (s *sender) Send(f *transmit.VideoFrame) {
	C.send_video(s.inst,
		C.int(f.Width), C.int(f.Height),
		C.int(f.FrameRateN), C.int(f.FrameRateD),
		C.float(f.AspectRatio),
		(*C.uint8_t)(unsafe.Pointer(&f.Data[0])),
		C.int(f.Stride))
}

func (s *sender) Close() {
	C.NDIlib_send_destroy(s.inst)
	logger.Info("NDI", "Destroyed sender %q", s.name)
}
