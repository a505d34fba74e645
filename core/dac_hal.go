package core

import "errors"

// DACFullScale is the largest code accepted by an 8-bit DAC output.
const DACFullScale = 255

// ErrDACBusy is returned by a DAC that cannot accept a sample right now.
var ErrDACBusy = errors.New("dac busy")

// DACDriver is the abstract analog output interface that core code uses.
// Platform-specific implementations handle the actual peripheral.
type DACDriver interface {
	// Configure powers up the output stage. Called once before the first
	// sample is written.
	Configure() error

	// WriteSample drives the output to value (0 = ground, DACFullScale =
	// reference). It is called from the tick context and must not block.
	WriteSample(value uint8) error
}

// Global singleton used by target code.
var dacDriver DACDriver

// SetDACDriver is called by target-specific code to register its driver.
func SetDACDriver(d DACDriver) {
	dacDriver = d
}

// MustDAC returns the configured driver or panics if missing.
func MustDAC() DACDriver {
	if dacDriver == nil {
		panic("DAC driver not configured")
	}
	return dacDriver
}
