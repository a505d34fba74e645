package fngen

import (
	"fmt"
	"sync"
)

// DefaultPresets are the built-in settings loaded at start.
var DefaultPresets = [PresetCount]SignalConfig{
	DefaultConfig,
	{Type: Sine, FrequencyHz: 1000, AmplitudeMV: SupplyMV / 2, DutyCycle: 0.5},
	{Type: Square, FrequencyHz: 500, AmplitudeMV: SupplyMV / 2, DutyCycle: 0.5},
	{Type: Triangle, FrequencyHz: 250, AmplitudeMV: SupplyMV, DutyCycle: 0.5},
	{Type: Sawtooth, FrequencyHz: 2000, AmplitudeMV: SupplyMV, DutyCycle: 0.5},
}

// PresetStore is a fixed table of stored settings.
type PresetStore struct {
	mu      sync.RWMutex
	presets [PresetCount]SignalConfig
}

// NewPresetStore returns a store holding DefaultPresets.
func NewPresetStore() *PresetStore {
	return &PresetStore{presets: DefaultPresets}
}

func checkIndex(index int) error {
	if index < 0 || index >= PresetCount {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrUnknownPreset, index, PresetCount)
	}
	return nil
}

// Get returns the preset at index.
func (s *PresetStore) Get(index int) (SignalConfig, error) {
	if err := checkIndex(index); err != nil {
		return SignalConfig{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets[index], nil
}

// Store validates cfg and writes it at index.
func (s *PresetStore) Store(index int, cfg SignalConfig) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.presets[index] = cfg
	s.mu.Unlock()
	return nil
}

// All returns a copy of the table.
func (s *PresetStore) All() [PresetCount]SignalConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets
}

// CheckPlayable checks every stored preset against the sample rate of
// tickPeriodUS.
func (s *PresetStore) CheckPlayable(tickPeriodUS uint32) error {
	for i, cfg := range s.All() {
		if err := CheckPlayable(cfg, tickPeriodUS); err != nil {
			return fmt.Errorf("preset %d: %w", i, err)
		}
	}
	return nil
}
