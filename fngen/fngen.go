// Package fngen is the waveform synthesis engine of the bench function
// generator.
//
// An Engine owns the active SignalConfig and a periodic tick. Each tick
// advances a 32-bit phase accumulator (one waveform cycle is 2^32), samples
// the shape at that phase from a shared WaveTables, scales the sample by the
// amplitude around mid-supply and writes it to a core.DACDriver.
//
// Setters never modify the running configuration. They validate, build a
// new immutable snapshot and publish it with a single atomic pointer swap,
// so a tick sees either the old setting or the new one, never a mix.
package fngen

const (
	// PointCount is the number of points in one wavetable cycle.
	PointCount = 200

	// PresetCount is the capacity of the preset table.
	PresetCount = 5

	// TickPeriodUS is the default sample period in microseconds.
	TickPeriodUS = 30

	// SupplyMV is the output supply; amplitudes are limited to it.
	SupplyMV = 3300

	// FullScale is the largest DAC code.
	FullScale = 255

	MinFrequencyHz = 1
	MaxFrequencyHz = 3000
)

// DefaultConfig is the setting loaded into preset 0 and activated at start.
var DefaultConfig = SignalConfig{
	Type:        Sine,
	FrequencyHz: 1000,
	AmplitudeMV: 1000,
	DutyCycle:   0.3,
}
