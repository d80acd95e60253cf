// SPDX-License-Identifier: MIT
package audio

import "fmt"

// FrameSink receives mono frames. The slice is only valid for the duration
// of the call. visualizer.Visualizer satisfies it.
type FrameSink interface {
	Submit(frame []float64) bool
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(frame []float64) bool

// Submit calls f(frame).
func (f FrameSinkFunc) Submit(frame []float64) bool {
	return f(frame)
}

// Assembler keeps the most recent size mono samples and hands the whole
// window to the sink after every write, so the analysis always sees the
// latest audio regardless of how the source chunks it. Until the window
// has filled, the sink receives the shorter history; the analyzer
// zero-pads it.
type Assembler struct {
	ring   []float64
	pos    int // next write position
	filled int
	frame  []float64
	sink   FrameSink
}

// NewAssembler returns an Assembler producing frames of size samples.
func NewAssembler(size int, sink FrameSink) (*Assembler, error) {
	if size < 1 {
		return nil, fmt.Errorf("frame size must be positive, got %d", size)
	}
	if sink == nil {
		return nil, fmt.Errorf("frame sink must not be nil")
	}
	return &Assembler{
		ring:  make([]float64, size),
		frame: make([]float64, 0, size),
		sink:  sink,
	}, nil
}

// Size returns the frame length.
func (a *Assembler) Size() int {
	return len(a.ring)
}

// Write appends samples to the window and submits the updated frame. It
// returns the sink's answer, or false when samples is empty.
func (a *Assembler) Write(samples []float64) bool {
	if len(samples) == 0 {
		return false
	}
	size := len(a.ring)
	if len(samples) > size {
		samples = samples[len(samples)-size:]
	}
	for len(samples) > 0 {
		n := copy(a.ring[a.pos:], samples)
		samples = samples[n:]
		a.pos = (a.pos + n) % size
		a.filled = min(size, a.filled+n)
	}
	return a.sink.Submit(a.snapshot())
}

// snapshot lays the window out oldest first.
func (a *Assembler) snapshot() []float64 {
	if a.filled < len(a.ring) {
		return append(a.frame[:0], a.ring[:a.filled]...)
	}
	a.frame = append(a.frame[:0], a.ring[a.pos:]...)
	return append(a.frame, a.ring[:a.pos]...)
}

// Reset forgets the history.
func (a *Assembler) Reset() {
	clear(a.ring)
	a.pos = 0
	a.filled = 0
}

// Downmix averages interleaved float32 samples into dst, one value per
// frame, and returns the filled part of dst. dst is grown if needed.
func Downmix(dst []float64, in []float32, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}
	frames := len(in) / channels
	if cap(dst) < frames {
		dst = make([]float64, frames)
	}
	dst = dst[:frames]
	if channels == 1 {
		for i, s := range in[:frames] {
			dst[i] = float64(s)
		}
		return dst
	}
	scale := 1 / float64(channels)
	for i := range dst {
		var sum float64
		for _, s := range in[i*channels : (i+1)*channels] {
			sum += float64(s)
		}
		dst[i] = sum * scale
	}
	return dst
}
