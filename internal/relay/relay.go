// Package relay hands frames from the driver's callback context to the
// publish loop. Each modality family (video, depth) gets a single-slot
// mailbox: a newer frame overwrites an undrained older one, so memory stays
// bounded and the publish loop always sees the latest frame. Frame loss under
// backpressure is deliberate; the drop counters make it visible.
package relay

import "sync"

// slot is a mutex-guarded single-slot buffer with a freshness flag.
// publish is called from the driver callback context, tryDrain from the
// publish loop; the mutex is the only synchronization between the two.
type slot[E byte | uint16] struct {
	mu        sync.Mutex
	buf       []E
	fresh     bool
	published uint64
	dropped   uint64
}

func (s *slot[E]) publish(src []E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fresh {
		// Previous frame was never drained; it is overwritten below.
		s.dropped++
	}
	if len(s.buf) != len(src) {
		// Frame size changed (mode change); reallocate the slot.
		s.buf = make([]E, len(src))
	}
	copy(s.buf, src)
	s.fresh = true
	s.published++
}

// tryDrain copies the slot contents into dst when a fresh frame is pending
// and clears the freshness flag. dst is reused when its capacity suffices.
// It never blocks waiting for a frame.
func (s *slot[E]) tryDrain(dst []E) ([]E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fresh {
		return dst, false
	}
	if cap(dst) >= len(s.buf) {
		dst = dst[:len(s.buf)]
	} else {
		dst = make([]E, len(s.buf))
	}
	copy(dst, s.buf)
	s.fresh = false
	return dst, true
}

func (s *slot[E]) stats() (published, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published, s.dropped
}

// Relay is the handoff point between the two execution contexts. The video
// slot carries IR or RGB bytes (the two are mutually exclusive), the depth
// slot carries 11-bit samples. The two slots lock independently and are never
// held together, so there is no lock ordering to get wrong.
type Relay struct {
	video slot[byte]
	depth slot[uint16]
}

// New creates an empty relay. Both slots start without a fresh frame.
func New() *Relay {
	return &Relay{}
}

// PublishVideo stores the latest video frame. Called from the driver's video
// callback; the pixel data is copied before the callback returns.
func (r *Relay) PublishVideo(pixels []byte) {
	r.video.publish(pixels)
}

// PublishDepth stores the latest depth frame. Called from the driver's depth
// callback; the samples are copied before the callback returns.
func (r *Relay) PublishDepth(samples []uint16) {
	r.depth.publish(samples)
}

// TryDrainVideo returns a private copy of the freshest video frame, or
// (dst, false) when nothing new arrived since the last drain.
func (r *Relay) TryDrainVideo(dst []byte) ([]byte, bool) {
	return r.video.tryDrain(dst)
}

// TryDrainDepth returns a private copy of the freshest depth frame, or
// (dst, false) when nothing new arrived since the last drain.
func (r *Relay) TryDrainDepth(dst []uint16) ([]uint16, bool) {
	return r.depth.tryDrain(dst)
}

// VideoStats returns lifetime publish and overwrite-drop counts for the video slot.
func (r *Relay) VideoStats() (published, dropped uint64) {
	return r.video.stats()
}

// DepthStats returns lifetime publish and overwrite-drop counts for the depth slot.
func (r *Relay) DepthStats() (published, dropped uint64) {
	return r.depth.stats()
}
