// Package scope measures a captured block of DAC samples: levels in
// millivolts, duty cycle and the dominant frequency.
package scope

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/ktye/fft"

	"benchscope/fngen"
)

// MinSamples is the shortest block Measure accepts.
const MinSamples = 16

var ErrShortCapture = errors.New("scope: capture too short")

// Measurement summarizes a capture.
type Measurement struct {
	Samples      int
	Min, Max     uint8
	MeanMV       float64
	PeakToPeakMV float64
	Duty         float64 // fraction of samples above the midpoint of Min and Max
	FrequencyHz  float64
}

func (m Measurement) String() string {
	return fmt.Sprintf("%.1fHz %.0fmVpp mean=%.0fmV duty=%.0f%% n=%d",
		m.FrequencyHz, m.PeakToPeakMV, m.MeanMV, m.Duty*100, m.Samples)
}

// CodeToMV converts a DAC code to millivolts.
func CodeToMV(code float64) float64 {
	return code * fngen.SupplyMV / fngen.FullScale
}

// Measure analyses samples taken at sampleRateHz.
func Measure(samples []uint8, sampleRateHz float64) (Measurement, error) {
	if len(samples) < MinSamples {
		return Measurement{}, fmt.Errorf("%w: %d samples", ErrShortCapture, len(samples))
	}

	m := Measurement{Samples: len(samples), Min: samples[0], Max: samples[0]}
	var sum float64
	for _, s := range samples {
		m.Min = min(m.Min, s)
		m.Max = max(m.Max, s)
		sum += float64(s)
	}
	m.MeanMV = CodeToMV(sum / float64(len(samples)))
	m.PeakToPeakMV = CodeToMV(float64(m.Max) - float64(m.Min))

	mid := (float64(m.Min) + float64(m.Max)) / 2
	high := 0
	for _, s := range samples {
		if float64(s) > mid {
			high++
		}
	}
	m.Duty = float64(high) / float64(len(samples))

	f, err := DominantFrequency(samples, sampleRateHz)
	if err != nil {
		return m, err
	}
	m.FrequencyHz = f
	return m, nil
}

// DominantFrequency returns the frequency of the strongest spectral line.
// It transforms the largest power of two block that fits, with the mean
// removed and a Hann window, and refines the peak by parabolic
// interpolation. A constant signal returns 0.
func DominantFrequency(samples []uint8, sampleRateHz float64) (float64, error) {
	n := 1
	for n*2 <= len(samples) {
		n *= 2
	}
	if n < MinSamples {
		return 0, fmt.Errorf("%w: %d samples", ErrShortCapture, len(samples))
	}

	tr, err := fft.New(n)
	if err != nil {
		return 0, err
	}

	var mean float64
	for _, s := range samples[:n] {
		mean += float64(s)
	}
	mean /= float64(n)

	buf := make([]complex128, n)
	for i, s := range samples[:n] {
		w := (1 - math.Cos(2*math.Pi*float64(i)/float64(n))) / 2
		buf[i] = complex((float64(s)-mean)*w, 0)
	}
	buf = tr.Transform(buf)

	mag := make([]float64, n/2)
	peak := 0
	for i := 1; i < n/2; i++ {
		mag[i] = cmplx.Abs(buf[i])
		if mag[i] > mag[peak] {
			peak = i
		}
	}
	if peak == 0 {
		return 0, nil
	}

	bin := float64(peak)
	if peak > 1 && peak < n/2-1 {
		a, b, c := mag[peak-1], mag[peak], mag[peak+1]
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	return bin * sampleRateHz / float64(n), nil
}
