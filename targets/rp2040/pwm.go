//go:build rp2040

package main

import (
	"machine"

	"benchscope/core"
)

// 256 system clocks at 125MHz, so TOP is DACFullScale and the carrier is
// far above the RC filter corner.
const pwmPeriodNS = 2048

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// pwmDAC implements core.DACDriver with one PWM channel followed by an RC
// low pass filter.
type pwmDAC struct {
	pin     machine.Pin
	pwm     pwmPeripheral
	channel uint8
	top     uint32
}

// newPWMDAC returns the output on pin. GPIO N maps to slice (N>>1)&7,
// channel A for even pins and B for odd ones.
func newPWMDAC(pin machine.Pin) *pwmDAC {
	return &pwmDAC{pin: pin, pwm: getPWMPeripheral(uint8((pin >> 1) & 0x7))}
}

// Configure implements core.DACDriver. The output starts at mid-scale.
func (d *pwmDAC) Configure() error {
	if err := d.pwm.Configure(machine.PWMConfig{Period: pwmPeriodNS}); err != nil {
		return err
	}
	ch, err := d.pwm.Channel(d.pin)
	if err != nil {
		return err
	}
	d.channel = ch
	d.top = d.pwm.Top()
	return d.WriteSample(core.DACFullScale/2 + 1)
}

// WriteSample implements core.DACDriver.
func (d *pwmDAC) WriteSample(value uint8) error {
	d.pwm.Set(d.channel, uint32(value)*d.top/core.DACFullScale)
	return nil
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
