package core

import (
	"errors"
	"sync"
)

var ErrPinNotConfigured = errors.New("gpio pin not configured as output")

// MemoryGPIO is a GPIODriver that keeps pin levels in memory. The
// simulator renders them; tests read them back.
type MemoryGPIO struct {
	mu       sync.Mutex
	pins     map[GPIOPin]bool
	onChange func(pin GPIOPin, value bool)
}

// NewMemoryGPIO returns a driver with no configured pins. onChange, if not
// nil, is called after every level change.
func NewMemoryGPIO(onChange func(pin GPIOPin, value bool)) *MemoryGPIO {
	return &MemoryGPIO{pins: make(map[GPIOPin]bool), onChange: onChange}
}

// ConfigureOutput implements GPIODriver.
func (g *MemoryGPIO) ConfigureOutput(pin GPIOPin) error {
	g.mu.Lock()
	g.pins[pin] = false
	g.mu.Unlock()
	return nil
}

// SetPin implements GPIODriver.
func (g *MemoryGPIO) SetPin(pin GPIOPin, value bool) error {
	g.mu.Lock()
	old, ok := g.pins[pin]
	if ok {
		g.pins[pin] = value
	}
	g.mu.Unlock()
	if !ok {
		return ErrPinNotConfigured
	}
	if old != value && g.onChange != nil {
		g.onChange(pin, value)
	}
	return nil
}

// Pin returns the level of pin.
func (g *MemoryGPIO) Pin(pin GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pins[pin]
}
