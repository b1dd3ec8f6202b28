// Package device owns the sensor lifecycle: the driver capability interfaces,
// the session holding one opened handle, and the supervisor that reconnects
// forever. The driver itself (libfreenect) lives behind the Driver interface
// so that the lifecycle logic is testable against fakes.
package device

import "github.com/kinectcast/kinectcast/pkg/types"

// Driver is the entry point into the sensor driver.
type Driver interface {
	// Init creates a fresh driver context. Fails when the driver library
	// cannot start at all, e.g. no USB subsystem.
	Init() (Context, error)
}

// Context owns driver-level state and the driver's event loop. A context is
// created per connection attempt and released during teardown.
type Context interface {
	// Open opens the device at the given index.
	Open(index int) (Device, error)

	// ProcessEvents runs one bounded iteration of the driver's internal event
	// loop. Frame callbacks fire synchronously from inside this call or from
	// the driver's own threads, depending on the driver build. A non-nil
	// error means the device is gone and the session must be torn down.
	ProcessEvents() error

	// Shutdown releases the context. Must be called after the device handle
	// is closed.
	Shutdown()
}

// Device is one opened sensor handle. Callbacks must be registered before the
// corresponding stream is started. The byte slices handed to callbacks alias
// driver-owned memory and are only valid for the duration of the call.
type Device interface {
	SetVideoMode(m types.Modality) error
	SetDepthMode() error

	SetVideoCallback(fn func(pixels []byte))
	SetDepthCallback(fn func(samples []uint16))

	StartVideo() error
	StopVideo()
	StartDepth() error
	StopDepth()

	// Close releases the device handle. Streams must be stopped first.
	Close()
}
