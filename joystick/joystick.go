// Package joystick reads the two potentiometer joystick of the front panel.
package joystick

import (
	"errors"
	"fmt"
	"sync/atomic"

	"benchscope/core"
)

// MaxPosition is the full deflection of an axis.
const MaxPosition = 1000

// Centre band of an axis; readings inside it count as released.
const (
	CenterLow  = 400
	CenterHigh = 600
)

var ErrCreate = errors.New("joystick: cannot configure input")

// Position is a decoded joystick direction.
type Position uint8

const (
	Middle Position = iota
	Up
	Left
	Right
	Down
)

func (p Position) String() string {
	switch p {
	case Middle:
		return "middle"
	case Up:
		return "up"
	case Left:
		return "left"
	case Right:
		return "right"
	case Down:
		return "down"
	}
	return fmt.Sprintf("Position(%d)", uint8(p))
}

// Axis is one potentiometer.
type Axis struct {
	Channel  core.ADCChannel
	Reversed bool
}

// Joystick samples two ADC channels.
type Joystick struct {
	adc  core.ADCDriver
	x, y Axis
}

// New configures both channels on adc.
func New(adc core.ADCDriver, x, y Axis) (*Joystick, error) {
	if adc == nil {
		return nil, fmt.Errorf("%w: no ADC", ErrCreate)
	}
	for _, a := range []Axis{x, y} {
		if err := adc.ConfigureChannel(a.Channel); err != nil {
			return nil, fmt.Errorf("%w: channel %d: %v", ErrCreate, a.Channel, err)
		}
	}
	return &Joystick{adc: adc, x: x, y: y}, nil
}

func (j *Joystick) read(a Axis) (uint32, error) {
	raw, err := j.adc.ReadRaw(a.Channel)
	if err != nil {
		return 0, err
	}
	p := uint32(raw) * MaxPosition / 0xFFFF
	if a.Reversed {
		p = MaxPosition - p
	}
	return p, nil
}

// Position returns both axes scaled to [0, MaxPosition].
func (j *Joystick) Position() (x, y uint32, err error) {
	if x, err = j.read(j.x); err != nil {
		return 0, 0, err
	}
	if y, err = j.read(j.y); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Discrete returns the decoded direction.
func (j *Joystick) Discrete() (Position, error) {
	x, y, err := j.Position()
	if err != nil {
		return Middle, err
	}
	return Decode(x, y), nil
}

// Decode maps axis positions to a direction. The vertical axis wins when
// both are deflected.
func Decode(x, y uint32) Position {
	switch {
	case y > CenterHigh:
		return Down
	case y < CenterLow:
		return Up
	case x < CenterLow:
		return Right
	case x > CenterHigh:
		return Left
	}
	return Middle
}

// VirtualADC is an ADCDriver whose channels are set by software, e.g. from
// keyboard input in the simulator. Channels start at mid-scale.
type VirtualADC struct {
	values [8]atomic.Uint32
}

// NewVirtualADC returns an ADC with every channel centred.
func NewVirtualADC() *VirtualADC {
	v := &VirtualADC{}
	for i := range v.values {
		v.values[i].Store(0x8000)
	}
	return v
}

// ConfigureChannel implements core.ADCDriver.
func (v *VirtualADC) ConfigureChannel(ch core.ADCChannel) error {
	if int(ch) >= len(v.values) {
		return fmt.Errorf("virtual adc: no channel %d", ch)
	}
	return nil
}

// ReadRaw implements core.ADCDriver.
func (v *VirtualADC) ReadRaw(ch core.ADCChannel) (core.ADCValue, error) {
	if int(ch) >= len(v.values) {
		return 0, fmt.Errorf("virtual adc: no channel %d", ch)
	}
	return core.ADCValue(v.values[ch].Load()), nil
}

// Set drives a channel to raw.
func (v *VirtualADC) Set(ch core.ADCChannel, raw core.ADCValue) {
	if int(ch) < len(v.values) {
		v.values[ch].Store(uint32(raw))
	}
}

// Push sets the channels of a joystick so that it reads as p.
func (v *VirtualADC) Push(x, y Axis, p Position) {
	const lo, mid, hi = 0, 0x8000, 0xFFFF
	xv, yv := core.ADCValue(mid), core.ADCValue(mid)
	switch p {
	case Up:
		yv = lo
	case Down:
		yv = hi
	case Right:
		xv = lo
	case Left:
		xv = hi
	}
	if x.Reversed {
		xv = hi - xv
	}
	if y.Reversed {
		yv = hi - yv
	}
	v.Set(x.Channel, xv)
	v.Set(y.Channel, yv)
}
