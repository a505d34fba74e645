package fngen

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchscope/core"
)

// countingTimer wraps a PeriodicTimer and counts enable/disable calls.
type countingTimer struct {
	*core.PeriodicTimer
	enables, disables int
	configureErr      error
}

func (c *countingTimer) Configure(periodUS uint32, cb func()) error {
	if c.configureErr != nil {
		return c.configureErr
	}
	return c.PeriodicTimer.Configure(periodUS, cb)
}

func (c *countingTimer) Enable() error {
	c.enables++
	return c.PeriodicTimer.Enable()
}

func (c *countingTimer) Disable() error {
	c.disables++
	return c.PeriodicTimer.Disable()
}

type failingDAC struct{}

func (failingDAC) Configure() error       { return errors.New("no dac") }
func (failingDAC) WriteSample(uint8) error { return nil }

type rig struct {
	e      *Engine
	sched  *core.Scheduler
	timer  *countingTimer
	dac    *core.CaptureDAC
	period uint32
}

func newRig(t *testing.T, periodUS uint32, opts ...Option) *rig {
	t.Helper()
	sched := core.NewScheduler(0)
	r := &rig{
		sched:  sched,
		timer:  &countingTimer{PeriodicTimer: core.NewPeriodicTimer(sched)},
		dac:    core.NewCaptureDAC(0),
		period: periodUS,
	}
	e, err := New(r.dac, r.timer, append([]Option{WithTickPeriod(periodUS)}, opts...)...)
	require.NoError(t, err)
	r.e = e
	return r
}

// presetsAt returns a table whose every slot is a sine at hz, for rigs with
// a slow tick.
func presetsAt(hz uint32) *PresetStore {
	s := NewPresetStore()
	for i := range s.presets {
		s.presets[i] = SignalConfig{Type: Sine, FrequencyHz: hz, AmplitudeMV: 100}
	}
	return s
}

// run advances virtual time by n ticks and returns the samples written.
func (r *rig) run(n int) []uint8 {
	r.dac.Drain()
	r.sched.Advance(uint32(n) * r.period)
	return r.dac.Drain()
}

func TestNewDefaults(t *testing.T) {
	r := newRig(t, TickPeriodUS)
	assert.Equal(t, DefaultConfig, r.e.Config())
	assert.False(t, r.e.Running())
	assert.True(t, r.dac.Configured())
	assert.Empty(t, r.run(100), "a new engine is stopped")
	assert.InDelta(t, 33333.3, r.e.TickRateHz(), 0.1)
}

func TestNewErrors(t *testing.T) {
	sched := core.NewScheduler(0)

	_, err := New(nil, core.NewPeriodicTimer(sched))
	assert.ErrorIs(t, err, ErrCreate)

	_, err = New(core.NewCaptureDAC(0), nil)
	assert.ErrorIs(t, err, ErrCreate)

	_, err = New(failingDAC{}, core.NewPeriodicTimer(sched))
	assert.ErrorIs(t, err, ErrCreate)

	bad := &countingTimer{PeriodicTimer: core.NewPeriodicTimer(sched), configureErr: core.ErrTimerPeriod}
	_, err = New(core.NewCaptureDAC(0), bad)
	assert.ErrorIs(t, err, ErrCreate)
	assert.Equal(t, CodeCreate, Code(err))

	_, err = New(core.NewCaptureDAC(0), core.NewPeriodicTimer(sched), WithTickPeriod(0))
	assert.ErrorIs(t, err, ErrCreate)

	presets := NewPresetStore()
	presets.presets[0] = SignalConfig{Type: Sine, FrequencyHz: 3000}
	_, err = New(core.NewCaptureDAC(0), core.NewPeriodicTimer(sched), WithTickPeriod(1000), WithPresets(presets))
	assert.ErrorIs(t, err, ErrCreate, "preset 0 above the sample rate limit")

	// 300 us ticks cannot play the 2000 Hz built-in preset 4.
	_, err = New(core.NewCaptureDAC(0), core.NewPeriodicTimer(sched), WithTickPeriod(300))
	assert.ErrorIs(t, err, ErrCreate)
	assert.Contains(t, err.Error(), "preset 4")
}

func TestFieldIndependence(t *testing.T) {
	r := newRig(t, 10)
	require.NoError(t, r.e.SetSignalConfig(SignalConfig{Type: Square, FrequencyHz: 100, AmplitudeMV: 500, DutyCycle: 0.4}))

	for _, f := range []uint32{MinFrequencyHz, 250, 1000, MaxFrequencyHz} {
		for _, a := range []uint32{0, 1, 1650, SupplyMV} {
			require.NoError(t, r.e.SetFrequency(f))
			require.NoError(t, r.e.SetAmplitude(a))
			cfg := r.e.Config()
			assert.Equal(t, Square, cfg.Type)
			assert.Equal(t, 0.4, cfg.DutyCycle)
			assert.Equal(t, f, cfg.FrequencyHz)
			assert.Equal(t, a, cfg.AmplitudeMV)
		}
	}

	require.NoError(t, r.e.SetDutyCycle(0.9))
	require.NoError(t, r.e.SetSignalType(Triangle))
	assert.Equal(t, SignalConfig{Type: Triangle, FrequencyHz: MaxFrequencyHz, AmplitudeMV: SupplyMV, DutyCycle: 0.9}, r.e.Config())
}

func TestInvalidSettingLeavesConfig(t *testing.T) {
	r := newRig(t, 10)
	require.NoError(t, r.e.Start())
	before := r.e.Config()
	samplesBefore := r.run(100)

	for _, a := range []uint32{SupplyMV + 1, 10000, math.MaxUint32} {
		assert.ErrorIs(t, r.e.SetAmplitude(a), ErrInvalidArgument)
	}
	assert.ErrorIs(t, r.e.SetFrequency(0), ErrInvalidArgument)
	assert.ErrorIs(t, r.e.SetFrequency(MaxFrequencyHz+1), ErrInvalidArgument)
	assert.ErrorIs(t, r.e.SetDutyCycle(-0.5), ErrInvalidArgument)
	assert.ErrorIs(t, r.e.SetDutyCycle(1.5), ErrInvalidArgument)
	assert.ErrorIs(t, r.e.SetDutyCycle(math.NaN()), ErrInvalidArgument)
	assert.ErrorIs(t, r.e.SetSignalType(SignalType(9)), ErrUnknownSignal)
	assert.ErrorIs(t, r.e.SetSignalConfig(SignalConfig{Type: Sine, FrequencyHz: 100, AmplitudeMV: 4000}), ErrInvalidArgument)

	assert.Equal(t, before, r.e.Config())
	assert.True(t, r.e.Running(), "a rejected setting does not stop the output")

	// The waveform continues exactly where it was.
	require.NoError(t, r.e.Stop())
	require.NoError(t, r.e.Start())
	assert.Equal(t, samplesBefore, r.run(100))
}

func TestFrequencyLimitedBySampleRate(t *testing.T) {
	r := newRig(t, 1000, WithPresets(presetsAt(250))) // 1 kHz sample rate
	assert.NoError(t, r.e.SetFrequency(500))
	assert.ErrorIs(t, r.e.SetFrequency(501), ErrInvalidArgument)
	assert.Equal(t, uint32(500), r.e.Config().FrequencyHz)
}

func TestPresetRoundTrip(t *testing.T) {
	r := newRig(t, 10)
	for i := 0; i < PresetCount; i++ {
		require.NoError(t, r.e.SetPreset(i))
		stored, err := r.e.GetPreset(i)
		require.NoError(t, err)
		assert.Equal(t, stored, r.e.Config(), "preset %d", i)
		assert.Equal(t, DefaultPresets[i], stored)
	}
}

func TestLoadPresetChecksSampleRate(t *testing.T) {
	r := newRig(t, 200, WithPresets(presetsAt(1000))) // 5 kHz sample rate
	table := r.e.presets.All()

	err := r.e.LoadPreset(1, SignalConfig{Type: Sine, FrequencyHz: 3000, AmplitudeMV: 100})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, table, r.e.presets.All())

	want := SignalConfig{Type: Sine, FrequencyHz: 2500, AmplitudeMV: 100}
	require.NoError(t, r.e.LoadPreset(1, want))
	require.NoError(t, r.e.SetPreset(1))
	assert.Equal(t, want, r.e.Config())
}

func TestPresetIndexOutOfRange(t *testing.T) {
	r := newRig(t, 10)
	require.NoError(t, r.e.SetPreset(3))
	before := r.e.Config()
	table := r.e.presets.All()

	for _, index := range []int{-1, PresetCount, PresetCount + 10} {
		err := r.e.SetPreset(index)
		assert.ErrorIs(t, err, ErrUnknownPreset)
		assert.Equal(t, CodeUnknownSignal, Code(err))

		_, err = r.e.GetPreset(index)
		assert.ErrorIs(t, err, ErrUnknownSignal)

		err = r.e.LoadPreset(index, DefaultConfig)
		assert.ErrorIs(t, err, ErrUnknownSignal)
	}

	assert.Equal(t, before, r.e.Config())
	assert.Equal(t, table, r.e.presets.All())
	assert.False(t, r.e.Running())
}

func TestLoadPresetScenario(t *testing.T) {
	r := newRig(t, 10)
	want := SignalConfig{Type: Square, FrequencyHz: 500, AmplitudeMV: 2000, DutyCycle: 0.25}

	require.NoError(t, r.e.LoadPreset(2, want))
	assert.NotEqual(t, want, r.e.Config(), "storing a preset does not activate it")

	require.NoError(t, r.e.SetPreset(2))
	got, err := r.e.GetPreset(2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, r.e.Config())
}

func TestLoadPresetRejectsInvalid(t *testing.T) {
	r := newRig(t, 10)
	err := r.e.LoadPreset(1, SignalConfig{Type: Square, FrequencyHz: 500, AmplitudeMV: 2000, DutyCycle: 2})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	got, _ := r.e.GetPreset(1)
	assert.Equal(t, DefaultPresets[1], got)
}

func TestStartStopIdempotent(t *testing.T) {
	r := newRig(t, 10)

	require.NoError(t, r.e.Start())
	require.NoError(t, r.e.Start())
	assert.True(t, r.e.Running())
	assert.Equal(t, 1, r.timer.enables)
	assert.Len(t, r.run(50), 50, "a double start does not double the tick rate")

	require.NoError(t, r.e.Stop())
	require.NoError(t, r.e.Stop())
	assert.False(t, r.e.Running())
	assert.Equal(t, 1, r.timer.disables)

	assert.Empty(t, r.run(50), "no ticks after Stop")
	assert.Equal(t, uint64(50), r.e.Stats().Ticks)
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	r := newRig(t, 10)
	require.NoError(t, r.e.Stop())
	assert.Equal(t, 0, r.timer.disables)
	assert.False(t, r.e.Running())
}

func TestPhaseRestartsOnStart(t *testing.T) {
	r := newRig(t, 10)
	require.NoError(t, r.e.SetSignalConfig(SignalConfig{Type: Sawtooth, FrequencyHz: 700, AmplitudeMV: SupplyMV}))

	require.NoError(t, r.e.Start())
	first := r.run(37)
	require.NoError(t, r.e.Stop())

	require.NoError(t, r.e.Start())
	second := r.run(37)
	assert.Equal(t, first, second)
}

func TestSquareDutyFraction(t *testing.T) {
	const ticksPerCycle = 100 // 10us ticks at 1 kHz
	r := newRig(t, 10)

	for _, duty := range []float64{0, 0.01, 0.1, 0.25, 0.3, 0.5, 0.75, 0.99, 1} {
		require.NoError(t, r.e.SetSignalConfig(SignalConfig{Type: Square, FrequencyHz: 1000, AmplitudeMV: SupplyMV, DutyCycle: duty}))
		require.NoError(t, r.e.Start())
		samples := r.run(ticksPerCycle)
		require.NoError(t, r.e.Stop())

		high := 0
		for _, s := range samples {
			switch s {
			case FullScale:
				high++
			case 0:
			default:
				t.Fatalf("square sample %d is neither level", s)
			}
		}
		assert.InDelta(t, duty, float64(high)/ticksPerCycle, 1.0/ticksPerCycle, "duty %v", duty)
	}
}

func TestSineScenario(t *testing.T) {
	const ticksPerCycle = 100
	r := newRig(t, 10)

	require.NoError(t, r.e.SetSignalType(Sine))
	require.NoError(t, r.e.SetFrequency(1000))
	require.NoError(t, r.e.SetAmplitude(SupplyMV/2))
	require.NoError(t, r.e.Start())

	samples := r.run(3 * ticksPerCycle)
	require.Len(t, samples, 3*ticksPerCycle)

	mid := float64(FullScale) / 2
	swing := float64(FullScale) / 4 // half the supply, peak to peak
	for i, s := range samples {
		want := mid + swing*math.Sin(2*math.Pi*float64(i+1)/ticksPerCycle)
		if !assert.InDelta(t, want, float64(s), 1.5, "sample %d", i) {
			return
		}
	}
	for i := 0; i+ticksPerCycle < len(samples); i++ {
		assert.InDelta(t, int(samples[i]), int(samples[i+ticksPerCycle]), 1, "period at %d", i)
	}
}

func TestAmplitudeZeroHoldsMidSupply(t *testing.T) {
	r := newRig(t, 10)
	require.NoError(t, r.e.SetSignalConfig(SignalConfig{Type: Triangle, FrequencyHz: 300, AmplitudeMV: 0}))
	require.NoError(t, r.e.Start())
	for _, s := range r.run(50) {
		assert.Equal(t, uint8(128), s)
	}
}

func TestSinkFailureIsCounted(t *testing.T) {
	core.ClearEventRing()
	r := newRig(t, 10)
	r.dac.FailAfter(3)
	require.NoError(t, r.e.Start())

	r.sched.Advance(10 * r.period)

	st := r.e.Stats()
	assert.Equal(t, uint64(10), st.Ticks)
	assert.Equal(t, uint64(7), st.Dropped)
	assert.ErrorIs(t, st.LastError, core.ErrDACBusy)
	assert.True(t, st.Running, "sink failures do not stop the engine")

	var sinkEvents int
	for _, evt := range core.Events() {
		if evt.Type == core.EvtSinkError {
			sinkEvents++
		}
	}
	assert.Equal(t, 3, sinkEvents, "failures 1, 2 and 4 are logged")
}

// pairDAC flags every sample outside the allowed set.
type pairDAC struct {
	allowed map[uint8]bool
	last    uint8
	bad     []uint8
}

func (d *pairDAC) Configure() error { return nil }

func (d *pairDAC) WriteSample(v uint8) error {
	d.last = v
	if d.allowed != nil && !d.allowed[v] {
		d.bad = append(d.bad, v)
	}
	return nil
}

// TestPublishNeverTears swaps between two settings while ticking. Each
// setting emits one constant code, and mixing the duty of one with the
// amplitude of the other emits a different code, so every written sample
// shows whether the tick read a whole snapshot.
func TestPublishNeverTears(t *testing.T) {
	a := SignalConfig{Type: Square, FrequencyHz: 100, AmplitudeMV: SupplyMV, DutyCycle: 1}
	b := SignalConfig{Type: Square, FrequencyHz: 200, AmplitudeMV: SupplyMV / 2, DutyCycle: 0}

	dac := &pairDAC{}
	e, err := New(dac, core.NewPeriodicTimer(core.NewScheduler(0)), WithTickPeriod(10))
	require.NoError(t, err)

	dac.allowed = map[uint8]bool{}
	for _, cfg := range []SignalConfig{a, b} {
		require.NoError(t, e.SetSignalConfig(cfg))
		e.Tick()
		dac.allowed[dac.last] = true
	}
	require.Len(t, dac.allowed, 2)

	pa, err := e.compile(a)
	require.NoError(t, err)
	pb, err := e.compile(b)
	require.NoError(t, err)
	for _, torn := range []uint8{
		scale(sampleSquare(pa, nil, 0), pb.halfSpan),
		scale(sampleSquare(pb, nil, 0), pa.halfSpan),
	} {
		require.False(t, dac.allowed[torn], "torn code %d must be distinguishable", torn)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for w, cfg := range []SignalConfig{a, b} {
		wg.Add(1)
		go func(cfg SignalConfig, other SignalConfig) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				_ = e.SetSignalConfig(cfg)
				_ = e.SetSignalConfig(other)
			}
		}(cfg, []SignalConfig{b, a}[w])
	}

	deadline := time.Now().Add(100 * time.Millisecond)
	for n := 0; time.Now().Before(deadline) || n < 10000; n++ {
		e.Tick()
	}
	close(done)
	wg.Wait()

	assert.Empty(t, dac.bad, "samples from a torn snapshot")
	assert.Equal(t, uint64(0), e.Stats().Dropped)
}

func TestInhibit(t *testing.T) {
	r := newRig(t, 10)
	var changes []bool
	r.e.OnRunChange(func(running bool) { changes = append(changes, running) })

	require.NoError(t, r.e.Start())
	assert.NotEmpty(t, r.run(10))

	hot := errors.New("too hot")
	require.NoError(t, r.e.Inhibit(hot))
	assert.False(t, r.e.Running())
	assert.Empty(t, r.run(10), "an inhibited engine emits nothing")
	assert.ErrorIs(t, r.e.Start(), hot)
	assert.False(t, r.e.Running())

	// Settings still apply while locked.
	require.NoError(t, r.e.SetFrequency(250))

	require.NoError(t, r.e.Inhibit(nil))
	require.NoError(t, r.e.Start())
	assert.True(t, r.e.Running())
	require.NoError(t, r.e.Stop())

	assert.Equal(t, []bool{true, false, true, false}, changes)
}

func TestTickerTimerDrivesEngine(t *testing.T) {
	dac := core.NewCaptureDAC(1024)
	e, err := New(dac, core.NewTickerTimer(time.Millisecond), WithTickPeriod(TickPeriodUS))
	require.NoError(t, err)

	require.NoError(t, e.Start())
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, e.Stop())

	ticks := e.Stats().Ticks
	assert.Greater(t, ticks, uint64(0))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, ticks, e.Stats().Ticks, "no ticks after Stop returns")
}
