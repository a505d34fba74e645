package fngen

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"benchscope/core"
)

// Engine generates the configured waveform on a DAC, one sample per tick
// of an interval timer.
//
// Setters may be called from any goroutine. Start, Stop and Inhibit are
// serialized with each other. LoadPreset is safe at any time but is meant
// to be used while stopped or during setup.
type Engine struct {
	dac      core.DACDriver
	timer    core.IntervalTimer
	tables   *WaveTables
	presets  *PresetStore
	periodUS uint32

	active    atomic.Pointer[program]
	publishMu sync.Mutex // serializes read-modify-write of the active config

	controlMu sync.Mutex // serializes Start, Stop and Inhibit
	running   atomic.Bool
	inhibit   error              // guarded by controlMu
	onRun     func(running bool) // guarded by controlMu

	// phase is touched only by the tick, and by Start/Stop while the timer
	// is disabled.
	phase uint32

	ticks   atomic.Uint64
	dropped atomic.Uint64
	errMu   sync.Mutex
	lastErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickPeriod sets the sample period in microseconds.
func WithTickPeriod(us uint32) Option {
	return func(e *Engine) { e.periodUS = us }
}

// WithPresets uses store instead of a fresh table of DefaultPresets.
func WithPresets(store *PresetStore) Option {
	return func(e *Engine) { e.presets = store }
}

// WithWaveTables uses tables instead of DefaultWaveTables.
func WithWaveTables(tables *WaveTables) Option {
	return func(e *Engine) { e.tables = tables }
}

// Stats are the runtime counters of an Engine.
type Stats struct {
	Ticks     uint64
	Dropped   uint64 // samples the DAC rejected
	Running   bool
	LastError error // most recent DAC failure
}

// New acquires dac and timer and returns a stopped engine whose active
// setting is preset 0. Failing to acquire either resource returns an error
// wrapping ErrCreate.
func New(dac core.DACDriver, timer core.IntervalTimer, opts ...Option) (*Engine, error) {
	e := &Engine{
		dac:      dac,
		timer:    timer,
		periodUS: TickPeriodUS,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tables == nil {
		e.tables = DefaultWaveTables()
	}
	if e.presets == nil {
		e.presets = NewPresetStore()
	}

	if dac == nil || timer == nil {
		return nil, fmt.Errorf("%w: missing output or timer", ErrCreate)
	}
	if e.periodUS == 0 {
		return nil, fmt.Errorf("%w: zero tick period", ErrCreate)
	}
	if err := dac.Configure(); err != nil {
		return nil, fmt.Errorf("%w: configure output: %v", ErrCreate, err)
	}
	if err := timer.Configure(e.periodUS, e.Tick); err != nil {
		return nil, fmt.Errorf("%w: configure timer: %v", ErrCreate, err)
	}

	if err := e.presets.CheckPlayable(e.periodUS); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	initial, err := e.presets.Get(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	p, err := e.compile(initial)
	if err != nil {
		return nil, fmt.Errorf("%w: preset 0: %v", ErrCreate, err)
	}
	e.active.Store(p)
	return e, nil
}

// TickRateHz returns the number of samples per second.
func (e *Engine) TickRateHz() float64 {
	return 1e6 / float64(e.periodUS)
}

// Start enables the tick. The phase starts from zero. Starting a running
// engine does nothing. While inhibited, Start returns the inhibit reason.
func (e *Engine) Start() error {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	if e.inhibit != nil {
		return e.inhibit
	}
	if e.running.Load() {
		return nil
	}
	e.phase = 0
	if err := e.timer.Enable(); err != nil {
		return fmt.Errorf("%w: enable timer: %v", ErrGeneric, err)
	}
	e.running.Store(true)
	core.RecordEvent(core.EvtStart, e.active.Load().cfg.FrequencyHz, 0)
	core.DebugPrintln("[fngen] start " + e.Config().String())
	e.notify(true)
	return nil
}

// Stop disables the tick. No tick runs after Stop returns. Stopping a
// stopped engine does nothing.
func (e *Engine) Stop() error {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()
	return e.stop()
}

func (e *Engine) stop() error {
	if !e.running.Load() {
		return nil
	}
	if err := e.timer.Disable(); err != nil {
		return fmt.Errorf("%w: disable timer: %v", ErrGeneric, err)
	}
	e.running.Store(false)
	e.phase = 0
	core.RecordEvent(core.EvtStop, uint32(e.ticks.Load()), uint32(e.dropped.Load()))
	core.DebugPrintln("[fngen] stop")
	e.notify(false)
	return nil
}

// Inhibit locks the output: a running engine stops and Start returns
// reason until Inhibit(nil). Every caller of Start sees the lock.
func (e *Engine) Inhibit(reason error) error {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	e.inhibit = reason
	if reason == nil {
		return nil
	}
	core.DebugPrintln("[fngen] inhibit: " + reason.Error())
	return e.stop()
}

// OnRunChange calls fn after every start and stop, whoever requested it.
// fn runs with Start/Stop serialized and must not call them.
func (e *Engine) OnRunChange(fn func(running bool)) {
	e.controlMu.Lock()
	e.onRun = fn
	e.controlMu.Unlock()
}

func (e *Engine) notify(running bool) {
	if e.onRun != nil {
		e.onRun(running)
	}
}

// Running reports whether the tick is enabled.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Config returns the active setting.
func (e *Engine) Config() SignalConfig {
	return e.active.Load().cfg
}

// Stats returns the runtime counters.
func (e *Engine) Stats() Stats {
	e.errMu.Lock()
	lastErr := e.lastErr
	e.errMu.Unlock()
	return Stats{
		Ticks:     e.ticks.Load(),
		Dropped:   e.dropped.Load(),
		Running:   e.running.Load(),
		LastError: lastErr,
	}
}

// SetFrequency changes the frequency, keeping the other fields.
func (e *Engine) SetFrequency(hz uint32) error {
	return e.update(func(c *SignalConfig) { c.FrequencyHz = hz })
}

// SetAmplitude changes the peak to peak amplitude in millivolts.
func (e *Engine) SetAmplitude(mv uint32) error {
	return e.update(func(c *SignalConfig) { c.AmplitudeMV = mv })
}

// SetDutyCycle changes the square wave duty cycle, a fraction in [0, 1].
func (e *Engine) SetDutyCycle(fraction float64) error {
	return e.update(func(c *SignalConfig) { c.DutyCycle = fraction })
}

// SetSignalType changes the shape.
func (e *Engine) SetSignalType(t SignalType) error {
	return e.update(func(c *SignalConfig) { c.Type = t })
}

// SetSignalConfig replaces the whole setting at once.
func (e *Engine) SetSignalConfig(cfg SignalConfig) error {
	return e.update(func(c *SignalConfig) { *c = cfg })
}

// SetPreset activates the stored preset at index.
func (e *Engine) SetPreset(index int) error {
	cfg, err := e.presets.Get(index)
	if err != nil {
		return err
	}
	if err := e.SetSignalConfig(cfg); err != nil {
		return err
	}
	core.RecordEvent(core.EvtPreset, uint32(index), 1)
	return nil
}

// GetPreset returns the stored preset at index.
func (e *Engine) GetPreset(index int) (SignalConfig, error) {
	return e.presets.Get(index)
}

// LoadPreset stores cfg at index without activating it. cfg must be
// playable at the engine's sample rate, so a stored preset always
// activates.
func (e *Engine) LoadPreset(index int, cfg SignalConfig) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if err := CheckPlayable(cfg, e.periodUS); err != nil {
		return err
	}
	if err := e.presets.Store(index, cfg); err != nil {
		return err
	}
	core.RecordEvent(core.EvtPreset, uint32(index), 0)
	return nil
}

// update applies mutate to a copy of the active setting and publishes the
// result. On error the active setting is unchanged.
func (e *Engine) update(mutate func(*SignalConfig)) error {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	cfg := e.active.Load().cfg
	mutate(&cfg)
	p, err := e.compile(cfg)
	if err != nil {
		return err
	}
	e.active.Store(p)
	core.RecordEvent(core.EvtConfig, cfg.FrequencyHz, cfg.AmplitudeMV)
	return nil
}

// program is a published setting with everything the tick needs
// precomputed.
type program struct {
	cfg       SignalConfig
	step      uint32 // phase advance per tick
	threshold uint64 // square is high while phase < threshold
	halfSpan  int32  // output swing per unit sample, in 1/256 DAC codes
	sample    sampler
}

// compile validates cfg and derives the tick parameters.
func (e *Engine) compile(cfg SignalConfig) (*program, error) {
	if err := CheckPlayable(cfg, e.periodUS); err != nil {
		return nil, err
	}
	return &program{
		cfg:       cfg,
		step:      uint32(math.Round(float64(cfg.FrequencyHz) * phaseCycle / e.TickRateHz())),
		threshold: uint64(math.Round(cfg.DutyCycle * phaseCycle)),
		halfSpan:  int32(math.Round(float64(cfg.AmplitudeMV) * FullScale * 256 / (2 * SupplyMV))),
		sample:    samplers[cfg.Type],
	}, nil
}
