//go:build rp2040

package main

import (
	"machine"

	"benchscope/core"
)

// rpGPIO implements core.GPIODriver for GPIO0-GPIO29.
type rpGPIO struct {
	configured uint32 // bit per pin
}

// ConfigureOutput implements core.GPIODriver.
func (d *rpGPIO) ConfigureOutput(pin core.GPIOPin) error {
	if pin > 29 {
		return core.ErrPinNotConfigured
	}
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	d.configured |= 1 << pin
	return nil
}

// SetPin implements core.GPIODriver.
func (d *rpGPIO) SetPin(pin core.GPIOPin, value bool) error {
	if pin > 29 || d.configured&(1<<pin) == 0 {
		return core.ErrPinNotConfigured
	}
	machine.Pin(pin).Set(value)
	return nil
}
