//go:build rp2040

package main

import (
	"context"
	"machine"
	"time"

	"benchscope/config"
	"benchscope/core"
	"benchscope/fngen"
	"benchscope/joystick"
	"benchscope/led"
	"benchscope/panel"
	"benchscope/periph"
)

// Board wiring. GP26/GP27 carry the joystick, so the LEDs move off the
// reference pins. GP0/GP1 carry the debug UART.
const (
	dacPin     = machine.GP15
	sensorBus  = 0
	redPin     = 18
	greenPin   = 19
	bluePin    = 20
	statusBlip = 50 * time.Millisecond
)

func boardConfig() *config.Config {
	cfg := config.Default()
	cfg.LEDs = config.LEDConfig{Red: redPin, Green: greenPin, Blue: bluePin}
	return cfg
}

func main() {
	// Clear watchdog state left over from a previous reset.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}
	initDebugUART()
	if err := initUSB(); err != nil {
		fail(err)
	}
	UpdateSystemTime()
	core.TimerInit()

	cfg := boardConfig()
	core.SetDACDriver(newPWMDAC(dacPin))
	core.SetADCDriver(newRPADC())
	core.SetGPIODriver(&rpGPIO{})
	initAlarms()
	core.SetIntervalTimer(sampleAlarm)

	opts, err := cfg.EngineOptions()
	if err != nil {
		fail(err)
	}
	engine, err := fngen.New(core.MustDAC(), core.MustIntervalTimer(), opts...)
	if err != nil {
		fail(err)
	}

	leds, err := led.NewController(core.MustGPIO(), ledAlarm)
	if err != nil {
		fail(err)
	}
	for name, pin := range cfg.Pins() {
		if err := leds.Create(name, pin); err != nil {
			fail(err)
		}
	}

	x, y := cfg.Axes()
	stick, err := joystick.New(core.MustADC(), x, y)
	if err != nil {
		fail(err)
	}

	var therm *periph.Thermometer
	if bus, err := configureI2C(sensorBus); err == nil {
		therm = periph.NewThermometer(bus)
		therm.SetAddress(cfg.Thermometer.Address)
	} else {
		core.DebugPrintln("[boot] i2c: " + err.Error())
	}

	reg := core.NewCommandRegistry()
	dict := core.NewDictionary(reg)
	core.InitCoreCommands(reg, dict)
	dict.AddConstant("MCU", "rp2040")
	fngen.RegisterCommands(reg, dict, engine)
	periph.RegisterCommands(reg, therm)
	if err := dict.BuildDictionary(); err != nil {
		fail(err)
	}

	var th panel.Thermometer
	if therm != nil {
		th = therm
	}
	go panel.New(engine, leds, stick, th).Run(context.Background())
	go serveUSB(reg)

	for {
		UpdateSystemTime()
		time.Sleep(time.Millisecond)
	}
}

// serveUSB runs the host session, starting a fresh one after a framing
// failure.
func serveUSB(reg *core.CommandRegistry) {
	for {
		sess := core.NewSession(reg, usbPort{})
		if err := sess.Serve(usbPort{}); err != nil {
			core.RecordEvent(core.EvtCommand, 0, 0)
			core.DebugAsync("[usb] " + err.Error())
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// fail blinks the on-board LED forever. Boot errors leave nothing to
// report to.
func fail(err error) {
	core.DebugPrintln("[boot] " + err.Error())
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		machine.LED.High()
		time.Sleep(statusBlip)
		machine.LED.Low()
		time.Sleep(4 * statusBlip)
	}
}
