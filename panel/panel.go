// Package panel is the front panel glue: joystick moves drive the
// generator, and the status LEDs mirror its state.
package panel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"benchscope/core"
	"benchscope/fngen"
	"benchscope/joystick"
	"benchscope/led"
)

const (
	PollPeriod        = 250 * time.Millisecond
	TemperaturePeriod = 3 * time.Second

	// OverTempMC stops the output, in milli-degrees Celsius.
	OverTempMC = 32000

	// RejectBlink is how long the blue LED blinks after a rejected setting.
	RejectBlink = 3 * time.Second

	DutyStep      = 0.05
	AmplitudeStep = 100
)

var ErrOverheated = errors.New("panel: board too hot")

// Generator is the part of the engine the panel drives.
type Generator interface {
	Config() fngen.SignalConfig
	Running() bool
	Start() error
	Stop() error
	SetSignalType(fngen.SignalType) error
	SetFrequency(uint32) error
	SetAmplitude(uint32) error
	SetDutyCycle(float64) error
	SetPreset(int) error
}

// Generators that also implement these lock the output for every caller
// and report starts and stops made by others.
type (
	inhibitor interface {
		Inhibit(reason error) error
	}
	runNotifier interface {
		OnRunChange(func(running bool))
	}
)

// Indicator shows patterns on the status LEDs.
type Indicator interface {
	Run(name led.Name, pattern led.Pattern, timeout time.Duration) error
}

// Input yields joystick directions.
type Input interface {
	Discrete() (joystick.Position, error)
}

// Thermometer reports the board temperature in milli-degrees Celsius.
type Thermometer interface {
	Read() (int32, int16, error)
}

// Field is the panel entry that joystick UP/DOWN changes.
type Field uint8

const (
	FieldType Field = iota
	FieldFrequency
	FieldAmplitude
	FieldDuty
	FieldPreset
	FieldRun
	fieldCount
)

var fieldNames = [fieldCount]string{"type", "freq", "amp", "duty", "preset", "run"}

func (f Field) String() string {
	if f < fieldCount {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", uint8(f))
}

// Panel maps joystick moves to generator settings.
type Panel struct {
	gen   Generator
	leds  Indicator
	input Input
	therm Thermometer

	mu         sync.Mutex
	focus      Field
	last       joystick.Position
	preset     int
	overheated bool
	tempMC     int32
}

// New returns a panel and shows the boot pattern: green on, red on while
// stopped. input and therm may be nil. When gen reports run changes, the
// red LED follows starts and stops from any control path.
func New(gen Generator, leds Indicator, input Input, therm Thermometer) *Panel {
	p := &Panel{gen: gen, leds: leds, input: input, therm: therm}
	p.show(led.Green, led.KeepOn, led.NoTimeout)
	if n, ok := gen.(runNotifier); ok {
		n.OnRunChange(p.showRun)
	}
	p.showRunState()
	return p
}

func (p *Panel) show(name led.Name, pattern led.Pattern, timeout time.Duration) {
	if p.leds == nil {
		return
	}
	if err := p.leds.Run(name, pattern, timeout); err != nil {
		core.DebugPrintln("[panel] led " + name.String() + ": " + err.Error())
	}
}

func (p *Panel) showRunState() {
	p.showRun(p.gen.Running())
}

// showRun must not take p.mu: the engine calls it from inside Start and
// Stop, which the panel calls with p.mu held.
func (p *Panel) showRun(running bool) {
	if running {
		p.show(led.Red, led.FastBlink, led.NoTimeout)
	} else {
		p.show(led.Red, led.KeepOn, led.NoTimeout)
	}
}

// Focus returns the field UP/DOWN act on.
func (p *Panel) Focus() Field {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focus
}

// Handle acts on a joystick reading. Only the move away from the centre
// counts, so holding a direction acts once.
func (p *Panel) Handle(pos joystick.Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.last
	p.last = pos
	if pos == joystick.Middle || pos == prev {
		return nil
	}

	switch pos {
	case joystick.Right:
		p.focus = (p.focus + 1) % fieldCount
		return nil
	case joystick.Left:
		p.focus = (p.focus + fieldCount - 1) % fieldCount
		return nil
	}

	err := p.adjust(pos == joystick.Up)
	if err != nil {
		core.DebugPrintln("[panel] " + p.focus.String() + ": " + err.Error())
		// Blue already fast-blinks for the temperature lock.
		if !p.overheated {
			p.show(led.Blue, led.SlowBlink, RejectBlink)
		}
	}
	return err
}

func (p *Panel) adjust(up bool) error {
	cfg := p.gen.Config()
	switch p.focus {
	case FieldType:
		n := fngen.SignalType(len(fngen.SignalTypeNames()))
		t := (cfg.Type + 1) % n
		if !up {
			t = (cfg.Type + n - 1) % n
		}
		return p.gen.SetSignalType(t)

	case FieldFrequency:
		return p.gen.SetFrequency(stepFrequency(cfg.FrequencyHz, up))

	case FieldAmplitude:
		mv := int64(cfg.AmplitudeMV) - AmplitudeStep
		if up {
			mv = int64(cfg.AmplitudeMV) + AmplitudeStep
		}
		return p.gen.SetAmplitude(uint32(min(max(mv, 0), fngen.SupplyMV)))

	case FieldDuty:
		d := cfg.DutyCycle - DutyStep
		if up {
			d = cfg.DutyCycle + DutyStep
		}
		d = math.Round(min(max(d, 0), 1)*100) / 100
		return p.gen.SetDutyCycle(d)

	case FieldPreset:
		if up {
			p.preset = (p.preset + 1) % fngen.PresetCount
		} else {
			p.preset = (p.preset + fngen.PresetCount - 1) % fngen.PresetCount
		}
		return p.gen.SetPreset(p.preset)

	case FieldRun:
		return p.setRunning(up)
	}
	return nil
}

// stepFrequency moves in 10 Hz steps up to 100 Hz and 100 Hz steps above.
func stepFrequency(hz uint32, up bool) uint32 {
	var step int64 = 100
	if (up && hz < 100) || (!up && hz <= 100) {
		step = 10
	}
	f := int64(hz) - step
	if up {
		f = int64(hz) + step
	}
	return uint32(min(max(f, fngen.MinFrequencyHz), fngen.MaxFrequencyHz))
}

func (p *Panel) setRunning(run bool) error {
	var err error
	switch {
	case run && p.overheated:
		err = ErrOverheated
	case run:
		err = p.gen.Start()
	default:
		err = p.gen.Stop()
	}
	p.showRunState()
	return err
}

// Start and Stop switch the output the same way the run field does.
func (p *Panel) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setRunning(true)
}

func (p *Panel) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setRunning(false)
}

// CheckTemperature records a reading. At OverTempMC the output stops and
// stays locked until the board cools below it. A generator with Inhibit is
// locked for every caller, not just the panel.
func (p *Panel) CheckTemperature(milliC int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tempMC = milliC

	hot := milliC >= OverTempMC
	if hot == p.overheated {
		return
	}
	p.overheated = hot
	if hot {
		core.DebugPrintln("[panel] board too hot, stopping output")
		var err error
		if inh, ok := p.gen.(inhibitor); ok {
			err = inh.Inhibit(ErrOverheated)
		} else {
			err = p.gen.Stop()
		}
		if err != nil {
			core.DebugPrintln("[panel] stop: " + err.Error())
		}
		p.show(led.Blue, led.FastBlink, led.NoTimeout)
		p.showRunState()
		return
	}
	if inh, ok := p.gen.(inhibitor); ok {
		inh.Inhibit(nil)
	}
	p.show(led.Blue, led.None, led.NoTimeout)
}

// Overheated reports whether the output is locked by temperature.
func (p *Panel) Overheated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overheated
}

// Status renders the panel on one line with the focused field bracketed.
func (p *Panel) Status() string {
	p.mu.Lock()
	focus, preset, temp, hot := p.focus, p.preset, p.tempMC, p.overheated
	p.mu.Unlock()

	cfg := p.gen.Config()
	run := "stopped"
	if p.gen.Running() {
		run = "running"
	}
	values := [fieldCount]string{
		cfg.Type.String(),
		fmt.Sprintf("%dHz", cfg.FrequencyHz),
		fmt.Sprintf("%dmV", cfg.AmplitudeMV),
		fmt.Sprintf("%.0f%%", cfg.DutyCycle*100),
		fmt.Sprintf("P%d", preset),
		run,
	}
	var b strings.Builder
	for f, v := range values {
		if f > 0 {
			b.WriteByte(' ')
		}
		if Field(f) == focus {
			b.WriteString("[" + v + "]")
		} else {
			b.WriteString(v)
		}
	}
	if p.therm != nil {
		fmt.Fprintf(&b, " %.1fC", float64(temp)/1000)
	}
	if hot {
		b.WriteString(" HOT")
	}
	return b.String()
}

// Run polls the joystick and the thermometer until ctx is done.
func (p *Panel) Run(ctx context.Context) error {
	poll := time.NewTicker(PollPeriod)
	defer poll.Stop()

	var temp <-chan time.Time
	if p.therm != nil {
		t := time.NewTicker(TemperaturePeriod)
		defer t.Stop()
		temp = t.C
		p.readTemperature()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			if p.input == nil {
				continue
			}
			pos, err := p.input.Discrete()
			if err != nil {
				core.DebugPrintln("[panel] joystick: " + err.Error())
				continue
			}
			p.Handle(pos)
		case <-temp:
			p.readTemperature()
		}
	}
}

func (p *Panel) readTemperature() {
	mc, _, err := p.therm.Read()
	if err != nil {
		core.DebugPrintln("[panel] temperature: " + err.Error())
		return
	}
	p.CheckTemperature(mc)
}
