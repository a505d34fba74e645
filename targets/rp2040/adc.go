//go:build rp2040

package main

import (
	"errors"
	"machine"

	"benchscope/core"
)

var errADCChannel = errors.New("unsupported ADC channel")

// rpADC implements core.ADCDriver on the external inputs ADC0..ADC3
// (GP26..GP29). machine.ADC already scales readings to 16 bits.
type rpADC struct {
	channels [4]*machine.ADC
}

func newRPADC() *rpADC {
	machine.InitADC()
	return &rpADC{}
}

// ConfigureChannel implements core.ADCDriver.
func (d *rpADC) ConfigureChannel(ch core.ADCChannel) error {
	if int(ch) >= len(d.channels) {
		return errADCChannel
	}
	if d.channels[ch] != nil {
		return nil
	}
	adc := &machine.ADC{Pin: [...]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3}[ch]}
	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.channels[ch] = adc
	return nil
}

// ReadRaw implements core.ADCDriver.
func (d *rpADC) ReadRaw(ch core.ADCChannel) (core.ADCValue, error) {
	if int(ch) >= len(d.channels) {
		return 0, errADCChannel
	}
	if d.channels[ch] == nil {
		if err := d.ConfigureChannel(ch); err != nil {
			return 0, err
		}
	}
	return core.ADCValue(d.channels[ch].Get()), nil
}
