package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"benchscope/config"
	"benchscope/core"
	"benchscope/fngen"
	"benchscope/host/audio"
	"benchscope/joystick"
	"benchscope/led"
	"benchscope/panel"
	"benchscope/periph"
	"benchscope/scope"
)

// board is the simulated generator: engine, PCF8591 and SHT3x on a
// simulated I2C bus, LEDs in memory and the front panel.
type board struct {
	cfg    *config.Config
	reg    *core.CommandRegistry
	dict   *core.Dictionary
	engine *fngen.Engine
	probe  *core.CaptureDAC
	ring   *audio.Ring
	gpio   *core.MemoryGPIO
	leds   *led.Controller
	adc    *joystick.VirtualADC
	sensor *periph.SimSHT3x
	therm  *periph.Thermometer
	panel  *panel.Panel
	x, y   joystick.Axis

	mu      sync.Mutex
	release *time.Timer
}

// newBoard wires a board. ring may be nil when audio is off.
func newBoard(cfg *config.Config, sampleTimer, ledTimer core.IntervalTimer, ring *audio.Ring) (*board, error) {
	b := &board{
		cfg:    cfg,
		probe:  core.NewCaptureDAC(0),
		ring:   ring,
		gpio:   core.NewMemoryGPIO(nil),
		adc:    joystick.NewVirtualADC(),
		sensor: periph.NewSimSHT3x(25000, 4500),
	}
	b.x, b.y = cfg.Axes()

	bus := periph.NewSimBus()
	bus.Attach(cfg.DAC.Address, &periph.SimPCF8591{Output: b.output, Input: b.adc})
	bus.Attach(cfg.Thermometer.Address, b.sensor)

	pcf := periph.NewPCF8591(bus)
	pcf.Address = cfg.DAC.Address
	b.therm = periph.NewThermometer(bus)
	b.therm.SetAddress(cfg.Thermometer.Address)

	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	if b.engine, err = fngen.New(pcf, sampleTimer, opts...); err != nil {
		return nil, err
	}

	if b.leds, err = led.NewController(b.gpio, ledTimer); err != nil {
		return nil, err
	}
	for name, pin := range cfg.Pins() {
		if err := b.leds.Create(name, pin); err != nil {
			return nil, fmt.Errorf("led %v: %w", name, err)
		}
	}

	stick, err := joystick.New(pcf, b.x, b.y)
	if err != nil {
		return nil, err
	}
	b.panel = panel.New(b.engine, b.leds, stick, b.therm)

	b.reg = core.NewCommandRegistry()
	b.dict = core.NewDictionary(b.reg)
	b.dict.SetVersion("benchscope-sim")
	core.InitCoreCommands(b.reg, b.dict)
	fngen.RegisterCommands(b.reg, b.dict, b.engine)
	periph.RegisterCommands(b.reg, b.therm)
	if err := b.dict.BuildDictionary(); err != nil {
		return nil, err
	}
	return b, nil
}

// output receives every sample the PCF8591 model converts.
func (b *board) output(v uint8) {
	b.probe.WriteSample(v)
	if b.ring != nil {
		b.ring.WriteSample(v)
	}
}

// press holds the joystick at pos for two panel polls.
func (b *board) press(pos joystick.Position) {
	b.adc.Push(b.x, b.y, pos)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.release != nil {
		b.release.Stop()
	}
	b.release = time.AfterFunc(2*panel.PollPeriod, func() {
		b.adc.Push(b.x, b.y, joystick.Middle)
	})
}

// heat moves the simulated board temperature by delta milli-degrees.
func (b *board) heat(delta int32) {
	b.sensor.Set(b.sensor.Temperature()+delta, 4500)
}

// serve runs one session per connection until ctx is done.
func (b *board) serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		core.DebugPrintln("[sim] host connected")
		go func() {
			defer conn.Close()
			sess := core.NewSession(b.reg, conn)
			if err := sess.Serve(conn); err != nil {
				core.DebugPrintln("[sim] session: " + err.Error())
			}
		}()
	}
}

// status renders the LEDs, the panel and a measurement of the samples
// produced since the previous call.
func (b *board) status() string {
	var sb strings.Builder
	pins := b.cfg.Pins()
	for _, n := range []led.Name{led.Red, led.Green, led.Blue} {
		c := n.String()[:1]
		if b.gpio.Pin(pins[n]) {
			c = strings.ToUpper(c)
		}
		sb.WriteString(c)
	}
	sb.WriteString("  ")
	sb.WriteString(b.panel.Status())
	sb.WriteString("  | ")

	m, err := scope.Measure(b.probe.Drain(), b.engine.TickRateHz())
	if err != nil {
		sb.WriteString("no signal")
	} else {
		sb.WriteString(m.String())
	}
	if st := b.engine.Stats(); st.Dropped > 0 {
		fmt.Fprintf(&sb, " dropped=%d", st.Dropped)
	}
	return sb.String()
}

func (b *board) close() {
	b.engine.Stop()
	b.leds.Close()
	b.mu.Lock()
	if b.release != nil {
		b.release.Stop()
	}
	b.mu.Unlock()
}
