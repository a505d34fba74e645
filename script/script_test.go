package script

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchscope/core"
	"benchscope/fngen"
)

type rig struct {
	r     *Runner
	e     *fngen.Engine
	sched *core.Scheduler
	dac   *core.CaptureDAC
	out   bytes.Buffer
	freqs []uint32
}

// newRig runs scripts against an engine on virtual time: sleep advances the
// scheduler and records the frequency in effect.
func newRig(t *testing.T) *rig {
	t.Helper()
	g := &rig{sched: core.NewScheduler(0), dac: core.NewCaptureDAC(0)}
	e, err := fngen.New(g.dac, core.NewPeriodicTimer(g.sched), fngen.WithTickPeriod(100))
	require.NoError(t, err)
	g.e = e
	g.r = New(e, &g.out)
	g.r.Sleep = func(_ context.Context, d time.Duration) error {
		g.freqs = append(g.freqs, g.e.Config().FrequencyHz)
		g.sched.Advance(uint32(d / time.Microsecond))
		return nil
	}
	return g
}

func (g *rig) run(t *testing.T, src string) error {
	t.Helper()
	return g.r.Run(context.Background(), t.Name(), src)
}

func TestSweep(t *testing.T) {
	g := newRig(t)
	require.NoError(t, g.run(t, `
		fn.type("triangle")
		fn.amp(2000)
		fn.start()
		for f = 100, 400, 100 do
			fn.freq(f)
			sleep(10)
		end
		fn.stop()
	`))
	assert.Equal(t, []uint32{100, 200, 300, 400}, g.freqs)
	assert.Len(t, g.dac.Drain(), 400, "100 ticks per 10 ms sleep")
	assert.False(t, g.e.Running())
	cfg := g.e.Config()
	assert.Equal(t, fngen.Triangle, cfg.Type)
	assert.Equal(t, uint32(2000), cfg.AmplitudeMV)
}

func TestSettersAndQueries(t *testing.T) {
	g := newRig(t)
	require.NoError(t, g.run(t, `
		fn.config{type="square", freq=50, amp=1200, duty=0.25}
		local c = fn.current()
		print(c.type, c.freq, c.amp, c.duty)
		fn.type(0)
		fn.duty(0.5)
		print(fn.current().type, fn.running())
	`))
	assert.Equal(t, "square\t50\t1200\t0.25\nsine\tfalse\n", g.out.String())
	assert.Equal(t, fngen.SignalConfig{Type: fngen.Sine, FrequencyHz: 50, AmplitudeMV: 1200, DutyCycle: 0.5}, g.e.Config())
}

func TestPresets(t *testing.T) {
	g := newRig(t)
	require.NoError(t, g.run(t, `
		fn.load(3, {type="saw", freq=250})
		fn.preset(3)
		local p = fn.get(3)
		print(p.type, p.freq, p.amp)
	`))
	assert.Equal(t, "sawtooth\t250\t1000\n", g.out.String(), "missing fields take the defaults")
	assert.Equal(t, uint32(250), g.e.Config().FrequencyHz)

	stored, err := g.e.GetPreset(3)
	require.NoError(t, err)
	assert.Equal(t, fngen.Sawtooth, stored.Type)
}

func TestRejectedSettingRaises(t *testing.T) {
	g := newRig(t)
	err := g.run(t, `fn.freq(99999)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument")
	assert.Equal(t, fngen.DefaultConfig, g.e.Config())

	for _, src := range []string{
		`fn.type("noise")`,
		`fn.preset(9)`,
		`fn.get(-1)`,
		`fn.config{freq="fast"}`,
		`fn.load(0, {amp=-5})`,
	} {
		assert.Error(t, g.run(t, src), src)
	}
	assert.Equal(t, fngen.DefaultConfig, g.e.Config())
}

func TestLargeNumbersDoNotWrap(t *testing.T) {
	g := newRig(t)
	require.NoError(t, g.e.SetAmplitude(100))
	before := g.e.Config()

	// 2^32 + 1000 and 2^32 + 100 would wrap onto valid settings.
	for _, src := range []string{
		`fn.freq(4294968296)`,
		`fn.amp(4294967396)`,
		`fn.freq(1000.5)`,
		`fn.amp(0/0)`,
		`fn.config{freq=4294968296}`,
		`fn.load(1, {amp=4294967396})`,
		`fn.preset(4294967296)`,
		`fn.get(0.5)`,
	} {
		err := g.run(t, src)
		require.Error(t, err, src)
		assert.Contains(t, err.Error(), "function generator error", src)
	}
	assert.Equal(t, before, g.e.Config())
	stored, err := g.e.GetPreset(1)
	require.NoError(t, err)
	assert.Equal(t, fngen.DefaultPresets[1], stored)
}

func TestStartWhileInhibited(t *testing.T) {
	g := newRig(t)
	require.NoError(t, g.e.Inhibit(errors.New("board too hot")))
	err := g.run(t, `fn.start()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "board too hot")
	assert.False(t, g.e.Running())

	require.NoError(t, g.run(t, `
		local ok, msg = pcall(fn.start)
		print(ok, string.find(msg, "board too hot", 1, true) ~= nil, fn.running())
	`))
	assert.Equal(t, "false\ttrue\tfalse\n", g.out.String())
}

func TestPcallContinues(t *testing.T) {
	g := newRig(t)
	require.NoError(t, g.run(t, `
		local ok = pcall(fn.duty, 1.5)
		print(ok)
		fn.duty(0.75)
	`))
	assert.Equal(t, "false\n", g.out.String())
	assert.Equal(t, 0.75, g.e.Config().DutyCycle)
}

func TestSyntaxError(t *testing.T) {
	g := newRig(t)
	assert.Error(t, g.run(t, `fn.freq(`))
}

func TestSandbox(t *testing.T) {
	g := newRig(t)
	require.NoError(t, g.run(t, `print(os == nil, io == nil, math.floor(2.5))`))
	assert.Equal(t, "true\ttrue\t2\n", g.out.String())
}

func TestCancelStopsSleep(t *testing.T) {
	e, err := fngen.New(core.NewCaptureDAC(16), core.NewPeriodicTimer(core.NewScheduler(0)))
	require.NoError(t, err)
	r := New(e, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = r.Run(ctx, "wait", `sleep(60000)`)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunFile(t *testing.T) {
	g := newRig(t)
	path := filepath.Join(t.TempDir(), "amp.lua")
	require.NoError(t, os.WriteFile(path, []byte(`fn.amp(3300)`), 0o644))
	require.NoError(t, g.r.RunFile(context.Background(), path))
	assert.Equal(t, uint32(3300), g.e.Config().AmplitudeMV)

	assert.Error(t, g.r.RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.lua")))
}
