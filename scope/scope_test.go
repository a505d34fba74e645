package scope

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchscope/core"
	"benchscope/fngen"
)

func synthesize(t *testing.T, cfg fngen.SignalConfig, periodUS uint32, n int) []uint8 {
	t.Helper()
	sched := core.NewScheduler(0)
	dac := core.NewCaptureDAC(0)
	e, err := fngen.New(dac, core.NewPeriodicTimer(sched), fngen.WithTickPeriod(periodUS))
	require.NoError(t, err)
	require.NoError(t, e.SetSignalConfig(cfg))
	require.NoError(t, e.Start())
	sched.Advance(uint32(n) * periodUS)
	return dac.Samples()
}

func TestMeasureSine(t *testing.T) {
	const rate = 1e6 / fngen.TickPeriodUS
	samples := synthesize(t, fngen.SignalConfig{Type: fngen.Sine, FrequencyHz: 1000, AmplitudeMV: 2000}, fngen.TickPeriodUS, 4096)

	m, err := Measure(samples, rate)
	require.NoError(t, err)
	assert.InDelta(t, 1000, m.FrequencyHz, 1000*0.01)
	assert.InDelta(t, 2000, m.PeakToPeakMV, 2*fngen.SupplyMV/fngen.FullScale)
	assert.InDelta(t, fngen.SupplyMV/2, m.MeanMV, 20)
	assert.InDelta(t, 0.5, m.Duty, 0.03)
}

func TestMeasureSquareDuty(t *testing.T) {
	const rate = 1e6 / 10
	samples := synthesize(t, fngen.SignalConfig{Type: fngen.Square, FrequencyHz: 250, AmplitudeMV: fngen.SupplyMV, DutyCycle: 0.2}, 10, 8192)

	m, err := Measure(samples, rate)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), m.Min)
	assert.Equal(t, uint8(255), m.Max)
	assert.InDelta(t, 0.2, m.Duty, 0.01)
	assert.InDelta(t, 250, m.FrequencyHz, 5)
}

func TestDominantFrequencyAcrossShapes(t *testing.T) {
	const rate = 1e6 / 10
	for _, typ := range []fngen.SignalType{fngen.Sine, fngen.Triangle, fngen.Sawtooth} {
		t.Run(typ.String(), func(t *testing.T) {
			samples := synthesize(t, fngen.SignalConfig{Type: typ, FrequencyHz: 2000, AmplitudeMV: 3000}, 10, 8192)
			f, err := DominantFrequency(samples, rate)
			require.NoError(t, err)
			assert.InDelta(t, 2000, f, 20)
		})
	}
}

func TestConstantSignal(t *testing.T) {
	samples := make([]uint8, 64)
	for i := range samples {
		samples[i] = 128
	}
	f, err := DominantFrequency(samples, 1000)
	require.NoError(t, err)
	assert.Zero(t, f)
}

func TestShortCapture(t *testing.T) {
	_, err := Measure(make([]uint8, 8), 1000)
	assert.ErrorIs(t, err, ErrShortCapture)
	_, err = DominantFrequency(make([]uint8, 31), 1000)
	require.NoError(t, err, "31 samples use a 16 point block")
}

func TestCodeToMV(t *testing.T) {
	assert.Equal(t, float64(fngen.SupplyMV), CodeToMV(fngen.FullScale))
	assert.True(t, math.Abs(CodeToMV(1)-12.94) < 0.01)
}
