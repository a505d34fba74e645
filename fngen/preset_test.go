package fngen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPresetsValid(t *testing.T) {
	for i, cfg := range DefaultPresets {
		assert.NoError(t, cfg.Validate(), "preset %d", i)
	}
	assert.Equal(t, DefaultConfig, DefaultPresets[0])
}

func TestPresetStore(t *testing.T) {
	s := NewPresetStore()

	got, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, DefaultPresets[2], got)

	cfg := SignalConfig{Type: Triangle, FrequencyHz: 42, AmplitudeMV: 100, DutyCycle: 0.9}
	require.NoError(t, s.Store(4, cfg))
	got, err = s.Get(4)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	all := s.All()
	assert.Equal(t, cfg, all[4])
	assert.Equal(t, DefaultPresets[0], all[0])
}

func TestPresetStoreBounds(t *testing.T) {
	s := NewPresetStore()
	before := s.All()

	for _, index := range []int{-1, PresetCount, 100} {
		_, err := s.Get(index)
		assert.ErrorIs(t, err, ErrUnknownPreset)
		assert.ErrorIs(t, s.Store(index, DefaultConfig), ErrUnknownSignal)
	}
	assert.ErrorIs(t, s.Store(1, SignalConfig{Type: Sine, FrequencyHz: 0}), ErrInvalidArgument)
	assert.Equal(t, before, s.All())
}
