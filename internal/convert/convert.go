// Package convert maps raw Kinect frames onto the BGRX pixel layout the NDI
// sender expects. All conversions are pure and allocation-free; callers pass
// a destination buffer of FrameWidth*FrameHeight*4 bytes and are responsible
// for matching input sizes.
package convert

const (
	// depthMax is the largest sample the 11-bit depth stream produces.
	depthMax = 2047

	// The fourth output channel is unused by the receiver; full opacity.
	opaque = 0xFF
)

// DepthLevel maps an 11-bit depth sample onto an 8-bit grayscale level.
// The mapping is floor(v*255/2047): 0 stays 0, 2047 becomes 255.
func DepthLevel(v uint16) uint8 {
	return uint8(uint32(v) * 255 / depthMax)
}

// GrayToBGRA replicates each 8-bit IR sample into the B, G and R channels.
func GrayToBGRA(src []byte, dst []byte) {
	for i, gray := range src {
		o := i * 4
		dst[o+0] = gray
		dst[o+1] = gray
		dst[o+2] = gray
		dst[o+3] = opaque
	}
}

// RGBToBGRA reorders packed RGB pixels into the BGRX byte layout.
func RGBToBGRA(src []byte, dst []byte) {
	pixels := len(src) / 3
	for i := 0; i < pixels; i++ {
		s := i * 3
		o := i * 4
		dst[o+0] = src[s+2] // blue
		dst[o+1] = src[s+1] // green
		dst[o+2] = src[s+0] // red
		dst[o+3] = opaque
	}
}

// DepthToBGRA rescales each 11-bit depth sample to 8 bits and replicates it
// into the B, G and R channels.
func DepthToBGRA(src []uint16, dst []byte) {
	for i, v := range src {
		gray := DepthLevel(v)
		o := i * 4
		dst[o+0] = gray
		dst[o+1] = gray
		dst[o+2] = gray
		dst[o+3] = opaque
	}
}
