package fngen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SignalType selects the waveform shape.
type SignalType uint8

const (
	Sine SignalType = iota
	Square
	Triangle
	Sawtooth

	signalTypeCount
)

var signalNames = [signalTypeCount]string{
	Sine:     "sine",
	Square:   "square",
	Triangle: "triangle",
	Sawtooth: "sawtooth",
}

// Valid reports whether t is one of the known shapes.
func (t SignalType) Valid() bool {
	return t < signalTypeCount
}

func (t SignalType) String() string {
	if !t.Valid() {
		return "SignalType(" + strconv.Itoa(int(t)) + ")"
	}
	return signalNames[t]
}

// SignalTypeNames returns the shape names indexed by their wire value.
func SignalTypeNames() []string {
	return append([]string(nil), signalNames[:]...)
}

// ParseSignalType accepts a shape name (case insensitive, "saw" and "tri"
// allowed) or its numeric value.
func ParseSignalType(s string) (SignalType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "saw":
		return Sawtooth, nil
	case "tri":
		return Triangle, nil
	}
	for i, n := range signalNames {
		if n == name {
			return SignalType(i), nil
		}
	}
	if v, err := strconv.ParseUint(name, 10, 8); err == nil && SignalType(v).Valid() {
		return SignalType(v), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, s)
}

// SignalConfig is one complete generator setting. Values are immutable
// once published to an Engine.
type SignalConfig struct {
	Type        SignalType
	FrequencyHz uint32
	AmplitudeMV uint32  // peak to peak
	DutyCycle   float64 // fraction of the cycle spent high; Square only
}

// Validate checks c against the device limits.
func (c SignalConfig) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownSignal, c.Type)
	}
	if err := validateFrequency(c.FrequencyHz); err != nil {
		return err
	}
	if err := validateAmplitude(c.AmplitudeMV); err != nil {
		return err
	}
	return validateDutyCycle(c.DutyCycle)
}

// CheckPlayable validates cfg and checks that a tick every tickPeriodUS
// gives at least two samples per cycle.
func CheckPlayable(cfg SignalConfig, tickPeriodUS uint32) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if tickPeriodUS == 0 {
		return fmt.Errorf("%w: zero tick period", ErrInvalidArgument)
	}
	rate := 1e6 / float64(tickPeriodUS)
	if float64(cfg.FrequencyHz)*2 > rate {
		return fmt.Errorf("%w: frequency %d Hz above half the %v Hz sample rate",
			ErrInvalidArgument, cfg.FrequencyHz, rate)
	}
	return nil
}

func (c SignalConfig) String() string {
	return fmt.Sprintf("%v %dHz %dmV duty=%.3f", c.Type, c.FrequencyHz, c.AmplitudeMV, c.DutyCycle)
}

func validateFrequency(hz uint32) error {
	if hz < MinFrequencyHz || hz > MaxFrequencyHz {
		return fmt.Errorf("%w: frequency %d Hz outside [%d, %d]",
			ErrInvalidArgument, hz, MinFrequencyHz, MaxFrequencyHz)
	}
	return nil
}

func validateAmplitude(mv uint32) error {
	if mv > SupplyMV {
		return fmt.Errorf("%w: amplitude %d mV above supply %d mV",
			ErrInvalidArgument, mv, SupplyMV)
	}
	return nil
}

func validateDutyCycle(d float64) error {
	if math.IsNaN(d) || d < 0 || d > 1 {
		return fmt.Errorf("%w: duty cycle %v outside [0, 1]", ErrInvalidArgument, d)
	}
	return nil
}
