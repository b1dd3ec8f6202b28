// Package transmit defines the network-video transmitter boundary. The real
// implementation wraps the NDI runtime; tests substitute in-memory fakes.
package transmit

// VideoFrame is one fully converted BGRX frame handed to a sender. The pixel
// buffer remains owned by the caller, which must keep it untouched until the
// next Send on the same sender returns or the sender is closed.
type VideoFrame struct {
	Width       int
	Height      int
	FrameRateN  int
	FrameRateD  int
	AspectRatio float32
	Stride      int // bytes per row
	Data        []byte
}

// Sender publishes frames on a single named network stream. Senders are
// created once at startup and survive device reconnects; they are closed only
// at process exit.
type Sender interface {
	Send(frame *VideoFrame)
	Close()
}

// Library is the transmitter runtime. CreateSender returning an error at
// startup is fatal; nothing in the reconnect path recreates senders.
type Library interface {
	CreateSender(name string) (Sender, error)
	Close()
}
