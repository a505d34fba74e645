// Package led runs blink patterns on the status LEDs from a 10 ms pattern
// tick.
package led

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"benchscope/core"
)

// Name identifies a status LED.
type Name uint8

const (
	Red Name = iota
	Green
	Blue
	ledCount
)

func (n Name) String() string {
	switch n {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return fmt.Sprintf("LED(%d)", uint8(n))
}

// Pattern is what an LED does over time.
type Pattern uint8

const (
	None      Pattern = iota // off
	KeepOn                   // on
	SlowBlink                // 1000 ms on, 1000 ms off
	FastBlink                // 100 ms on, 100 ms off
	patternCount
)

func (p Pattern) String() string {
	switch p {
	case None:
		return "none"
	case KeepOn:
		return "keep-on"
	case SlowBlink:
		return "slow-blink"
	case FastBlink:
		return "fast-blink"
	}
	return fmt.Sprintf("Pattern(%d)", uint8(p))
}

const (
	TickPeriod          = 10 * time.Millisecond
	SlowBlinkHalfPeriod = 1000 * time.Millisecond
	FastBlinkHalfPeriod = 100 * time.Millisecond

	// NoTimeout keeps a pattern until it is replaced.
	NoTimeout time.Duration = 0
)

var (
	ErrCreate         = errors.New("led: cannot create")
	ErrInvalidLED     = errors.New("led: invalid LED")
	ErrInvalidPattern = errors.New("led: invalid pattern")
)

// DefaultPins are the board GPIOs of the red, green and blue LEDs.
var DefaultPins = [ledCount]core.GPIOPin{26, 27, 14}

type state struct {
	created      bool
	pin          core.GPIOPin
	pattern      Pattern
	on           bool
	sinceState   time.Duration
	sincePattern time.Duration
	timeout      time.Duration
}

// Controller owns the LEDs and the pattern tick.
type Controller struct {
	gpio  core.GPIODriver
	timer core.IntervalTimer

	mu      sync.Mutex
	leds    [ledCount]state
	started bool
}

// NewController returns a controller whose tick runs on timer. The timer
// starts with the first Create.
func NewController(gpio core.GPIODriver, timer core.IntervalTimer) (*Controller, error) {
	if gpio == nil || timer == nil {
		return nil, fmt.Errorf("%w: missing gpio or timer", ErrCreate)
	}
	c := &Controller{gpio: gpio, timer: timer}
	if err := timer.Configure(uint32(TickPeriod/time.Microsecond), c.tick); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	return c, nil
}

// Create configures the pin of an LED and switches it off.
func (c *Controller) Create(name Name, pin core.GPIOPin) error {
	if name >= ledCount {
		return ErrInvalidLED
	}
	if err := c.gpio.ConfigureOutput(pin); err != nil {
		return fmt.Errorf("%w: %v %v", ErrCreate, name, err)
	}

	c.mu.Lock()
	c.leds[name] = state{created: true, pin: pin}
	start := !c.started
	c.started = true
	c.mu.Unlock()

	if start {
		if err := c.timer.Enable(); err != nil {
			return fmt.Errorf("%w: %v", ErrCreate, err)
		}
	}
	return nil
}

// Run starts pattern on an LED. A non-zero timeout switches the LED off
// once it has elapsed.
func (c *Controller) Run(name Name, pattern Pattern, timeout time.Duration) error {
	if name >= ledCount {
		return ErrInvalidLED
	}
	if pattern >= patternCount {
		return ErrInvalidPattern
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l := &c.leds[name]
	if !l.created {
		return ErrInvalidLED
	}
	l.pattern = pattern
	l.timeout = timeout
	l.sincePattern = 0
	return nil
}

// Reset switches an LED off at the next tick.
func (c *Controller) Reset(name Name) error {
	return c.Run(name, None, NoTimeout)
}

// State returns the current pattern and level of an LED.
func (c *Controller) State(name Name) (Pattern, bool) {
	if name >= ledCount {
		return None, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leds[name].pattern, c.leds[name].on
}

// Close stops the pattern tick.
func (c *Controller) Close() error {
	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()
	if started {
		return c.timer.Disable()
	}
	return nil
}

// tick runs in timer context. If a caller holds the lock this tick is
// skipped; patterns advance again on the next one.
func (c *Controller) tick() {
	if !c.mu.TryLock() {
		core.RecordEvent(core.EvtPatternLost, 0, 0)
		return
	}
	defer c.mu.Unlock()

	for i := range c.leds {
		l := &c.leds[i]
		if !l.created {
			continue
		}
		l.sincePattern += TickPeriod
		if l.timeout != 0 && l.sincePattern >= l.timeout {
			l.pattern = None
			l.sincePattern = 0
		}

		if (l.pattern == None && !l.on) || (l.pattern == KeepOn && l.on) {
			continue
		}
		l.sinceState += TickPeriod

		switch l.pattern {
		case None:
			c.set(l, false)
		case KeepOn:
			c.set(l, true)
		case SlowBlink:
			if l.sinceState >= SlowBlinkHalfPeriod {
				c.set(l, !l.on)
			}
		case FastBlink:
			if l.sinceState >= FastBlinkHalfPeriod {
				c.set(l, !l.on)
			}
		}
	}
}

func (c *Controller) set(l *state, on bool) {
	if err := c.gpio.SetPin(l.pin, on); err != nil {
		core.RecordEvent(core.EvtPatternLost, uint32(l.pin), 1)
		return
	}
	l.on = on
	l.sinceState = 0
}
