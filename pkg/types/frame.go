package types

import "fmt"

// Frame geometry. The Kinect delivers medium-resolution frames for both the
// video and depth streams, and the NDI output keeps the same dimensions.
const (
	FrameWidth  = 640
	FrameHeight = 480
	FramePixels = FrameWidth * FrameHeight

	// Output format: 4 bytes per pixel (BGRX), 30 fps.
	OutputChannels = 4
	OutputStride   = FrameWidth * OutputChannels
	OutputSize     = FramePixels * OutputChannels
	FrameRateN     = 30
	FrameRateD     = 1
)

// Modality identifies one of the Kinect's independently toggleable data channels.
type Modality int

const (
	ModalityBrightness Modality = iota // 8-bit IR, one channel per pixel
	ModalityColor                      // 24-bit RGB, three channels per pixel
	ModalityDepth                      // 11-bit depth, one uint16 sample per pixel
)

// String returns a human-readable modality name for logs.
func (m Modality) String() string {
	switch m {
	case ModalityBrightness:
		return "ir"
	case ModalityColor:
		return "rgb"
	case ModalityDepth:
		return "depth"
	default:
		return fmt.Sprintf("modality(%d)", int(m))
	}
}

// Channels returns the per-pixel channel count of the raw frame for this modality.
func (m Modality) Channels() int {
	if m == ModalityColor {
		return 3
	}
	return 1
}

// StreamConfig is the immutable modality selection built once from the command
// line. IR and RGB share the single video stream and are mutually exclusive;
// depth can be combined with either.
type StreamConfig struct {
	Brightness bool // IR video (8-bit grayscale)
	Color      bool // RGB video
	Depth      bool // 11-bit depth
}

// Video reports whether any video modality is enabled.
func (c StreamConfig) Video() bool {
	return c.Brightness || c.Color
}

// VideoModality returns the enabled video modality. Only meaningful when
// Video() is true.
func (c StreamConfig) VideoModality() Modality {
	if c.Color {
		return ModalityColor
	}
	return ModalityBrightness
}

// Validate checks the modality selection invariants.
func (c StreamConfig) Validate() error {
	if c.Brightness && c.Color {
		return fmt.Errorf("cannot enable both IR and RGB streaming simultaneously")
	}
	if !c.Brightness && !c.Color && !c.Depth {
		return fmt.Errorf("no streaming mode enabled: use --ir, --rgb, and/or --depth")
	}
	return nil
}
