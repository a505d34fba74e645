package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchscope/core"
	"benchscope/fngen"
	"benchscope/joystick"
	"benchscope/led"
	"benchscope/periph"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, uint32(fngen.TickPeriodUS), c.TickPeriodUS)
	assert.Equal(t, core.GPIOPin(26), c.Pins()[led.Red])
	assert.Equal(t, core.GPIOPin(14), c.Pins()[led.Blue])
	assert.Equal(t, uint16(periph.PCF8591Address), c.DAC.Address)
	assert.Equal(t, uint16(0x44), c.Thermometer.Address)
	assert.Equal(t, 250000, c.Serial.Baud)

	x, y := c.Axes()
	assert.Equal(t, joystick.Axis{Channel: 0}, x)
	assert.Equal(t, joystick.Axis{Channel: 1}, y)

	store, err := c.PresetStore()
	require.NoError(t, err)
	assert.Equal(t, fngen.DefaultPresets, store.All())
}

func TestLoadConfig(t *testing.T) {
	c, err := LoadConfig([]byte(`{
		"tick_period_us": 50,
		"presets": [
			{"type": "square", "frequency_hz": 100, "amplitude_mv": 0, "duty_cycle": 0.1},
			{"type": "tri"}
		],
		"joystick": {"x": {"channel": 2, "reversed": true}, "y": {"channel": 3}},
		"serial": {"device": "unix:/tmp/bench.sock"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, uint32(50), c.TickPeriodUS)
	assert.Equal(t, 250000, c.Serial.Baud)
	assert.Equal(t, "unix:/tmp/bench.sock", c.Serial.Device)

	x, _ := c.Axes()
	assert.Equal(t, joystick.Axis{Channel: 2, Reversed: true}, x)

	store, err := c.PresetStore()
	require.NoError(t, err)
	all := store.All()
	assert.Equal(t, fngen.SignalConfig{Type: fngen.Square, FrequencyHz: 100, AmplitudeMV: 0, DutyCycle: 0.1}, all[0])
	assert.Equal(t, fngen.SignalConfig{Type: fngen.Triangle, FrequencyHz: 1000, AmplitudeMV: 1000, DutyCycle: 0.3}, all[1])
	assert.Equal(t, fngen.DefaultPresets[2], all[2])
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig([]byte(`{`))
	assert.Error(t, err)

	_, err = LoadConfig([]byte(`{"presets": [{}, {}, {}, {}, {}, {}]}`))
	assert.ErrorIs(t, err, fngen.ErrInvalidArgument)

	for _, doc := range []string{
		`{"presets": [{"type": "noise"}]}`,
		`{"presets": [{"frequency_hz": 5000}]}`,
		`{"presets": [{"duty_cycle": 2}]}`,
	} {
		c, err := LoadConfig([]byte(doc))
		require.NoError(t, err, doc)
		_, err = c.EngineOptions()
		assert.ErrorIs(t, err, fngen.ErrGeneric, doc)
	}
}

func TestEngineOptions(t *testing.T) {
	c, err := LoadConfig([]byte(`{"tick_period_us": 100, "presets": [{"frequency_hz": 40}]}`))
	require.NoError(t, err)
	opts, err := c.EngineOptions()
	require.NoError(t, err)

	e, err := fngen.New(core.NewCaptureDAC(16), core.NewPeriodicTimer(core.NewScheduler(0)), opts...)
	require.NoError(t, err)
	assert.InDelta(t, 10000.0, e.TickRateHz(), 1e-9)
	assert.Equal(t, uint32(40), e.Config().FrequencyHz, "preset 0 is active at start")
}

func TestEngineOptionsSlowTick(t *testing.T) {
	// 300 us gives 3333 Hz samples, too few for the 2000 Hz built-in preset.
	c, err := LoadConfig([]byte(`{"tick_period_us": 300}`))
	require.NoError(t, err)
	_, err = c.EngineOptions()
	assert.ErrorIs(t, err, fngen.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "preset 4")

	c, err = LoadConfig([]byte(`{"tick_period_us": 1000, "presets": [
		{"frequency_hz": 100}, {"frequency_hz": 200}, {"frequency_hz": 300},
		{"frequency_hz": 400}, {"frequency_hz": 500}]}`))
	require.NoError(t, err)
	opts, err := c.EngineOptions()
	require.NoError(t, err)
	e, err := fngen.New(core.NewCaptureDAC(16), core.NewPeriodicTimer(core.NewScheduler(0)), opts...)
	require.NoError(t, err)
	for i := 0; i < fngen.PresetCount; i++ {
		assert.NoError(t, e.SetPreset(i), "preset %d", i)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"audio": {"enabled": true}}`), 0o644))
	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, c.Audio.Enabled)
	assert.Equal(t, 48000, c.Audio.SampleRate)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
