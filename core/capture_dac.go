package core

import "sync"

// CaptureDAC is a DACDriver that records every sample. Simulators and
// tests read the recorded waveform back with Samples or Drain.
type CaptureDAC struct {
	mu         sync.Mutex
	configured bool
	samples    []uint8
	limit      int
	failAfter  int
	writes     int
}

// NewCaptureDAC returns a DAC keeping at most limit samples; older samples
// are discarded first. A limit of 0 keeps everything.
func NewCaptureDAC(limit int) *CaptureDAC {
	return &CaptureDAC{limit: limit, failAfter: -1}
}

// Configure implements DACDriver.
func (d *CaptureDAC) Configure() error {
	d.mu.Lock()
	d.configured = true
	d.mu.Unlock()
	return nil
}

// WriteSample implements DACDriver.
func (d *CaptureDAC) WriteSample(value uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	if d.failAfter >= 0 && d.writes > d.failAfter {
		return ErrDACBusy
	}
	if d.limit > 0 && len(d.samples) == d.limit {
		copy(d.samples, d.samples[1:])
		d.samples = d.samples[:d.limit-1]
	}
	d.samples = append(d.samples, value)
	return nil
}

// FailAfter makes every write after the first n fail with ErrDACBusy.
// A negative n clears the fault.
func (d *CaptureDAC) FailAfter(n int) {
	d.mu.Lock()
	d.failAfter = n
	d.writes = 0
	d.mu.Unlock()
}

// Configured reports whether Configure has been called.
func (d *CaptureDAC) Configured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

// Samples returns a copy of the recorded samples.
func (d *CaptureDAC) Samples() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint8(nil), d.samples...)
}

// Drain returns the recorded samples and clears the buffer.
func (d *CaptureDAC) Drain() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.samples
	d.samples = nil
	return out
}

// Last returns the most recent sample, or false if nothing was written.
func (d *CaptureDAC) Last() (uint8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.samples) == 0 {
		return 0, false
	}
	return d.samples[len(d.samples)-1], true
}
