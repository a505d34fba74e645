// Package audio plays the generator output on the host sound card.
package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"benchscope/core"
)

// Ring is a DACDriver that buffers samples for a sound card reading at a
// different rate. One goroutine writes samples and one reads frames.
type Ring struct {
	buf  []uint8
	mask uint32
	head atomic.Uint32 // next write
	tail atomic.Uint32 // next read

	step float64 // input samples per output frame
	pos  float64
	last float32

	underruns atomic.Uint64
}

// NewRing returns a ring holding size samples, rounded up to a power of
// two. inRate is the DAC sample rate and outRate the sound card rate.
func NewRing(size int, inRate, outRate float64) *Ring {
	n := 1
	for n < size {
		n <<= 1
	}
	return &Ring{buf: make([]uint8, n), mask: uint32(n - 1), step: inRate / outRate}
}

// Configure implements core.DACDriver.
func (r *Ring) Configure() error {
	return nil
}

// WriteSample implements core.DACDriver. A full ring drops the sample.
func (r *Ring) WriteSample(value uint8) error {
	head := r.head.Load()
	if head-r.tail.Load() == uint32(len(r.buf)) {
		return core.ErrDACBusy
	}
	r.buf[head&r.mask] = value
	r.head.Store(head + 1)
	return nil
}

// Len returns the number of buffered samples.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Underruns counts output frames that found the ring empty.
func (r *Ring) Underruns() uint64 {
	return r.underruns.Load()
}

// Read fills p with mono float32 little endian frames, holding the last
// sample when the ring runs dry.
func (r *Ring) Read(p []byte) (int, error) {
	frames := len(p) / 4
	for i := 0; i < frames; i++ {
		r.pos += r.step
		for r.pos >= 1 {
			tail := r.tail.Load()
			if tail == r.head.Load() {
				r.underruns.Add(1)
				r.pos = 0
				break
			}
			r.last = float32(int(r.buf[tail&r.mask])-128) / 128
			r.tail.Store(tail + 1)
			r.pos--
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.last))
	}
	return frames * 4, nil
}
