// Package config loads the bench configuration: engine timing, the boot
// preset table, board wiring and the host link.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"benchscope/core"
	"benchscope/fngen"
	"benchscope/joystick"
	"benchscope/led"
	"benchscope/periph"
)

// Config is the top level configuration document.
type Config struct {
	TickPeriodUS uint32         `json:"tick_period_us"`
	Presets      []PresetConfig `json:"presets"`
	LEDs         LEDConfig      `json:"leds"`
	Joystick     JoystickConfig `json:"joystick"`
	DAC          I2CConfig      `json:"dac"`
	Thermometer  I2CConfig      `json:"thermometer"`
	Serial       SerialConfig   `json:"serial"`
	Audio        AudioConfig    `json:"audio"`
}

// PresetConfig is one preset slot. Amplitude and duty are pointers because
// zero is a valid setting for both.
type PresetConfig struct {
	Type        string   `json:"type"`
	FrequencyHz uint32   `json:"frequency_hz"`
	AmplitudeMV *uint32  `json:"amplitude_mv,omitempty"`
	DutyCycle   *float64 `json:"duty_cycle,omitempty"`
}

type LEDConfig struct {
	Red   core.GPIOPin `json:"red"`
	Green core.GPIOPin `json:"green"`
	Blue  core.GPIOPin `json:"blue"`
}

type AxisConfig struct {
	Channel  core.ADCChannel `json:"channel"`
	Reversed bool            `json:"reversed"`
}

type JoystickConfig struct {
	X AxisConfig `json:"x"`
	Y AxisConfig `json:"y"`
}

type I2CConfig struct {
	Address uint16 `json:"address"`
}

type SerialConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
}

// AudioConfig controls the simulator's speaker output.
type AudioConfig struct {
	Enabled    bool `json:"enabled"`
	SampleRate int  `json:"sample_rate"`
}

// LoadConfig parses a JSON configuration and fills in defaults.
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}
	if len(config.Presets) > fngen.PresetCount {
		return nil, fmt.Errorf("%w: %d presets, at most %d",
			fngen.ErrInvalidArgument, len(config.Presets), fngen.PresetCount)
	}
	applyDefaults(&config)
	return &config, nil
}

// LoadFile reads and parses the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadConfig(data)
}

func applyDefaults(config *Config) {
	if config.TickPeriodUS == 0 {
		config.TickPeriodUS = fngen.TickPeriodUS
	}

	if config.LEDs == (LEDConfig{}) {
		config.LEDs = LEDConfig{
			Red:   led.DefaultPins[led.Red],
			Green: led.DefaultPins[led.Green],
			Blue:  led.DefaultPins[led.Blue],
		}
	}

	if config.Joystick == (JoystickConfig{}) {
		config.Joystick = JoystickConfig{X: AxisConfig{Channel: 0}, Y: AxisConfig{Channel: 1}}
	}

	if config.DAC.Address == 0 {
		config.DAC.Address = periph.PCF8591Address
	}
	if config.Thermometer.Address == 0 {
		config.Thermometer.Address = periph.SHT3xAddress
	}

	if config.Serial.Baud == 0 {
		config.Serial.Baud = 250000
	}
	if config.Audio.SampleRate == 0 {
		config.Audio.SampleRate = 48000
	}
}

// Default returns the configuration of the reference board.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

// SignalConfig resolves p, taking unset fields from fngen.DefaultConfig.
func (p PresetConfig) SignalConfig() (fngen.SignalConfig, error) {
	cfg := fngen.DefaultConfig
	if p.Type != "" {
		t, err := fngen.ParseSignalType(p.Type)
		if err != nil {
			return cfg, err
		}
		cfg.Type = t
	}
	if p.FrequencyHz != 0 {
		cfg.FrequencyHz = p.FrequencyHz
	}
	if p.AmplitudeMV != nil {
		cfg.AmplitudeMV = *p.AmplitudeMV
	}
	if p.DutyCycle != nil {
		cfg.DutyCycle = *p.DutyCycle
	}
	return cfg, cfg.Validate()
}

// PresetStore builds the boot preset table. Slots past the configured
// presets keep fngen.DefaultPresets.
func (c *Config) PresetStore() (*fngen.PresetStore, error) {
	store := fngen.NewPresetStore()
	for i, p := range c.Presets {
		cfg, err := p.SignalConfig()
		if err != nil {
			return nil, fmt.Errorf("preset %d: %w", i, err)
		}
		if err := store.Store(i, cfg); err != nil {
			return nil, fmt.Errorf("preset %d: %w", i, err)
		}
	}
	return store, nil
}

// EngineOptions returns the engine options the configuration selects.
func (c *Config) EngineOptions() ([]fngen.Option, error) {
	store, err := c.PresetStore()
	if err != nil {
		return nil, err
	}
	if err := store.CheckPlayable(c.TickPeriodUS); err != nil {
		return nil, fmt.Errorf("tick_period_us %d: %w", c.TickPeriodUS, err)
	}
	return []fngen.Option{fngen.WithTickPeriod(c.TickPeriodUS), fngen.WithPresets(store)}, nil
}

// Pins returns the LED pins indexed by led.Name.
func (c *Config) Pins() map[led.Name]core.GPIOPin {
	return map[led.Name]core.GPIOPin{
		led.Red:   c.LEDs.Red,
		led.Green: c.LEDs.Green,
		led.Blue:  c.LEDs.Blue,
	}
}

// Axes returns the joystick axes.
func (c *Config) Axes() (x, y joystick.Axis) {
	return joystick.Axis{Channel: c.Joystick.X.Channel, Reversed: c.Joystick.X.Reversed},
		joystick.Axis{Channel: c.Joystick.Y.Channel, Reversed: c.Joystick.Y.Reversed}
}
