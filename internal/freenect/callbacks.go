package freenect

/*
#include <libfreenect.h>
*/
import "C"
import (
	"sync"
	"unsafe"
)

// libfreenect hands the C device pointer to its callbacks; cgo rules forbid
// stashing a Go pointer in the C user-data slot, so a registry maps the
// handle back to the owning Device. One entry in practice, since a single
// device is open at a time.
var (
	registryMu sync.Mutex
	registry   = map[*C.freenect_device]*Device{}
)

func registerDevice(dev *C.freenect_device, d *Device) {
	registryMu.Lock()
	registry[dev] = d
	registryMu.Unlock()
}

func unregisterDevice(dev *C.freenect_device) {
	registryMu.Lock()
	delete(registry, dev)
	registryMu.Unlock()
}

func lookupDevice(dev *C.freenect_device) *Device {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[dev]
}

//export goVideoCallback
func goVideoCallback(dev *C.freenect_device, video unsafe.Pointer, _ C.uint32_t) {
	d := lookupDevice(dev)
	if d == nil || d.onVideo == nil || d.videoBytes == 0 {
		return
	}
	d.onVideo(unsafe.Slice((*byte)(video), d.videoBytes))
}

//export goDepthCallback
func goDepthCallback(dev *C.freenect_device, depth unsafe.Pointer, _ C.uint32_t) {
	d := lookupDevice(dev)
	if d == nil || d.onDepth == nil || d.depthSamples == 0 {
		return
	}
	d.onDepth(unsafe.Slice((*uint16)(depth), d.depthSamples))
}
