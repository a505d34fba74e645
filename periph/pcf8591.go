// Package periph holds the I2C peripherals of the generator board. Drivers
// take a drivers.I2C so the same code runs on a machine.I2C and on the
// tester mock bus.
package periph

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"

	"benchscope/core"
)

// PCF8591 default address with A0..A2 tied low.
const PCF8591Address = 0x48

const (
	pcfOutputEnable = 0x40
	pcfChannels     = 4
)

var ErrADCChannel = errors.New("pcf8591: channel out of range")

// PCF8591 is an 8-bit I2C DAC with a four channel ADC. It serves as the
// generator output (core.DACDriver) and as the joystick input
// (core.ADCDriver). The analog output stays enabled during ADC reads.
type PCF8591 struct {
	bus     drivers.I2C
	Address uint16

	mu   sync.Mutex
	wbuf [2]byte
	rbuf [2]byte
}

// NewPCF8591 returns a driver on bus. The bus must already be configured.
func NewPCF8591(bus drivers.I2C) *PCF8591 {
	return &PCF8591{bus: bus, Address: PCF8591Address}
}

// Configure implements core.DACDriver. It enables the output at mid-scale.
func (d *PCF8591) Configure() error {
	return d.WriteSample(core.DACFullScale/2 + 1)
}

// WriteSample implements core.DACDriver.
func (d *PCF8591) WriteSample(value uint8) error {
	if !d.mu.TryLock() {
		return core.ErrDACBusy
	}
	defer d.mu.Unlock()
	d.wbuf[0] = pcfOutputEnable
	d.wbuf[1] = value
	return d.bus.Tx(d.Address, d.wbuf[:], nil)
}

// ConfigureChannel implements core.ADCDriver.
func (d *PCF8591) ConfigureChannel(ch core.ADCChannel) error {
	if ch >= pcfChannels {
		return ErrADCChannel
	}
	return nil
}

// ReadRaw implements core.ADCDriver. The first byte read back is the
// previous conversion, so two bytes are read and the second one is used.
// The 8-bit result is scaled to the 16-bit convention.
func (d *PCF8591) ReadRaw(ch core.ADCChannel) (core.ADCValue, error) {
	if ch >= pcfChannels {
		return 0, ErrADCChannel
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wbuf[0] = pcfOutputEnable | byte(ch)
	if err := d.bus.Tx(d.Address, d.wbuf[:1], d.rbuf[:]); err != nil {
		return 0, err
	}
	return core.ADCValue(d.rbuf[1]) << 8, nil
}
