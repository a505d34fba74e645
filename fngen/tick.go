package fngen

import "benchscope/core"

// phaseCycle is one waveform cycle in phase units.
const phaseCycle = 1 << 32

// midQ8 is mid-supply in 1/256 DAC codes.
const midQ8 = FullScale * 256 / 2

type sampler func(p *program, tables *WaveTables, phase uint32) int16

var samplers = [signalTypeCount]sampler{
	Sine:     sampleTable,
	Square:   sampleSquare,
	Triangle: sampleTable,
	Sawtooth: sampleTable,
}

func sampleTable(p *program, tables *WaveTables, phase uint32) int16 {
	return tables.At(p.cfg.Type, phase)
}

func sampleSquare(p *program, _ *WaveTables, phase uint32) int16 {
	if uint64(phase) < p.threshold {
		return q15One
	}
	return -q15One
}

// scale maps a unit sample to a DAC code around mid-supply.
func scale(s int16, halfSpan int32) uint8 {
	v := (midQ8 + int32(s)*halfSpan>>15 + 128) >> 8
	if v < 0 {
		return 0
	}
	if v > FullScale {
		return FullScale
	}
	return uint8(v)
}

// Tick emits one sample. It is the interval timer callback and does not
// block or allocate. A failed DAC write drops the sample and is counted.
func (e *Engine) Tick() {
	p := e.active.Load()

	e.phase += p.step
	out := scale(p.sample(p, e.tables, e.phase), p.halfSpan)
	e.ticks.Add(1)

	if err := e.dac.WriteSample(out); err != nil {
		// Log the 1st, 2nd, 4th, 8th... failure so the ring is not flooded.
		if n := e.dropped.Add(1); n&(n-1) == 0 {
			core.RecordEvent(core.EvtSinkError, uint32(e.ticks.Load()), 0)
		}
		if e.errMu.TryLock() {
			e.lastErr = err
			e.errMu.Unlock()
		}
	}
}
