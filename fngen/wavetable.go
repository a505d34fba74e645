package fngen

import (
	"math"
	"sync"
)

// WaveTables holds one cycle of every shape at unit amplitude as Q15
// samples. Each row carries a copy of its first point at the end so that
// interpolation never wraps the index.
type WaveTables struct {
	rows [signalTypeCount][PointCount + 1]int16
}

const q15One = 32767

// NewWaveTables computes the tables.
func NewWaveTables() *WaveTables {
	w := &WaveTables{}
	w.generate(Sine, func(p float64) float64 {
		return math.Sin(2 * math.Pi * p)
	})
	w.generate(Triangle, func(p float64) float64 {
		if p < 0.5 {
			return -1 + 4*p
		}
		return 3 - 4*p
	})
	w.generate(Sawtooth, func(p float64) float64 {
		return -1 + 2*p
	})
	// Square is rendered from the duty threshold at tick time; the row is a
	// 50% reference used by At.
	w.generate(Square, func(p float64) float64 {
		if p < 0.5 {
			return 1
		}
		return -1
	})
	return w
}

var defaultWaveTables = sync.OnceValue(NewWaveTables)

// DefaultWaveTables returns the process-wide tables, computed on first use.
func DefaultWaveTables() *WaveTables {
	return defaultWaveTables()
}

func (w *WaveTables) generate(t SignalType, f func(p float64) float64) {
	row := &w.rows[t]
	for i := 0; i < PointCount; i++ {
		row[i] = toQ15(f(float64(i) / PointCount))
	}
	row[PointCount] = row[0]
}

func toQ15(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(math.Round(v * q15One))
}

// Point returns table point i of shape t.
func (w *WaveTables) Point(t SignalType, i int) int16 {
	return w.rows[t][i]
}

// At returns the sample of shape t at phase, linearly interpolated between
// table points. Phase 0 is the start of the cycle and 2^32 is one full
// cycle.
func (w *WaveTables) At(t SignalType, phase uint32) int16 {
	pos := uint64(phase) * PointCount
	idx := pos >> 32
	frac := int32(uint32(pos) >> 17) // 15-bit fraction between points
	row := &w.rows[t]
	a := int32(row[idx])
	b := int32(row[idx+1])
	return int16(a + (b-a)*frac>>15)
}
