package fngen

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalTypeString(t *testing.T) {
	assert.Equal(t, "sine", Sine.String())
	assert.Equal(t, "sawtooth", Sawtooth.String())
	assert.Equal(t, "SignalType(9)", SignalType(9).String())
	assert.False(t, SignalType(4).Valid())
	assert.Equal(t, []string{"sine", "square", "triangle", "sawtooth"}, SignalTypeNames())
}

func TestParseSignalType(t *testing.T) {
	tests := map[string]SignalType{
		"sine":   Sine,
		"SQUARE": Square,
		" tri ":  Triangle,
		"saw":    Sawtooth,
		"2":      Triangle,
	}
	for in, want := range tests {
		got, err := ParseSignalType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"noise", "4", "-1", ""} {
		_, err := ParseSignalType(bad)
		assert.ErrorIs(t, err, ErrUnknownSignal, bad)
	}
}

func TestSignalConfigValidate(t *testing.T) {
	ok := SignalConfig{Type: Square, FrequencyHz: 500, AmplitudeMV: 1650, DutyCycle: 0.25}
	tests := []struct {
		name string
		cfg  SignalConfig
		want error
	}{
		{"valid", ok, nil},
		{"zero amplitude", SignalConfig{Type: Sine, FrequencyHz: 1, AmplitudeMV: 0}, nil},
		{"limits", SignalConfig{Type: Sine, FrequencyHz: MaxFrequencyHz, AmplitudeMV: SupplyMV, DutyCycle: 1}, nil},
		{"unknown type", SignalConfig{Type: 7, FrequencyHz: 500}, ErrUnknownSignal},
		{"zero frequency", SignalConfig{Type: Sine, FrequencyHz: 0}, ErrInvalidArgument},
		{"frequency too high", SignalConfig{Type: Sine, FrequencyHz: MaxFrequencyHz + 1}, ErrInvalidArgument},
		{"amplitude above supply", SignalConfig{Type: Sine, FrequencyHz: 500, AmplitudeMV: SupplyMV + 1}, ErrInvalidArgument},
		{"negative duty", SignalConfig{Type: Square, FrequencyHz: 500, DutyCycle: -0.01}, ErrInvalidArgument},
		{"duty above one", SignalConfig{Type: Square, FrequencyHz: 500, DutyCycle: 1.01}, ErrInvalidArgument},
		{"NaN duty", SignalConfig{Type: Square, FrequencyHz: 500, DutyCycle: math.NaN()}, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeNone, Code(nil))
	assert.Equal(t, CodeErr, Code(ErrGeneric))
	assert.Equal(t, CodeErr, Code(fmt.Errorf("ctx: %w", ErrInvalidArgument)))
	assert.Equal(t, CodeUnknownSignal, Code(ErrUnknownSignal))
	assert.Equal(t, CodeUnknownSignal, Code(ErrUnknownPreset))
	assert.Equal(t, CodeCreate, Code(fmt.Errorf("init: %w", ErrCreate)))
	assert.Equal(t, CodeErr, Code(errors.New("other")))

	// Every error is also a generic error.
	for _, err := range []error{ErrInvalidArgument, ErrUnknownSignal, ErrUnknownPreset, ErrCreate} {
		assert.ErrorIs(t, err, ErrGeneric)
	}
}

func TestCodeError(t *testing.T) {
	assert.NoError(t, CodeError(CodeNone))
	assert.ErrorIs(t, CodeError(CodeUnknownSignal), ErrUnknownSignal)
	assert.ErrorIs(t, CodeError(CodeCreate), ErrCreate)
	assert.ErrorIs(t, CodeError(CodeErr), ErrGeneric)
	assert.ErrorIs(t, CodeError(-42), ErrGeneric)

	for _, err := range []error{nil, ErrGeneric, ErrUnknownSignal, ErrCreate} {
		assert.Equal(t, Code(err), Code(CodeError(Code(err))))
	}
}
