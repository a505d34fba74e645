// Package script runs Lua sweep scripts against the generator.
//
// A script sees a global table fn and a sleep function:
//
//	fn.type("square")        -- or a number
//	fn.freq(1000)            -- Hz
//	fn.amp(1650)             -- mV peak to peak
//	fn.duty(0.25)            -- fraction
//	fn.config{type=..., freq=..., amp=..., duty=...}
//	fn.preset(2)             -- activate
//	fn.load(2, {...})        -- store
//	fn.get(2)                -- stored preset as a table
//	fn.current()             -- active setting as a table
//	fn.start() fn.stop() fn.running()
//	sleep(250)               -- ms
//
// A rejected setting raises a Lua error; wrap calls in pcall to continue.
package script

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"benchscope/fngen"
)

// Generator is the engine surface exposed to scripts.
type Generator interface {
	Config() fngen.SignalConfig
	Running() bool
	Start() error
	Stop() error
	SetSignalType(fngen.SignalType) error
	SetFrequency(uint32) error
	SetAmplitude(uint32) error
	SetDutyCycle(float64) error
	SetSignalConfig(fngen.SignalConfig) error
	SetPreset(int) error
	GetPreset(int) (fngen.SignalConfig, error)
	LoadPreset(int, fngen.SignalConfig) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runner executes scripts. Each Run gets a fresh interpreter.
type Runner struct {
	gen   Generator
	out   io.Writer
	Sleep SleepFunc
}

// New returns a runner printing to out.
func New(gen Generator, out io.Writer) *Runner {
	return &Runner{gen: gen, out: out, Sleep: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunFile runs the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.Run(ctx, path, string(src))
}

// Run executes src. Cancelling ctx stops the script.
func (r *Runner) Run(ctx context.Context, name, src string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return err
		}
	}

	L.SetGlobal("print", L.NewFunction(r.print))
	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckNumber(1)
		if err := r.Sleep(ctx, time.Duration(float64(ms)*float64(time.Millisecond))); err != nil {
			L.RaiseError("sleep: %v", err)
		}
		return 0
	}))
	L.SetGlobal("fn", r.fnTable(L))

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return err
	}
	L.Push(fn)
	return L.PCall(0, lua.MultRet, nil)
}

func (r *Runner) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	fmt.Fprintln(r.out, strings.Join(parts, "\t"))
	return 0
}

func check(L *lua.LState, err error) int {
	if err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (r *Runner) fnTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	set := func(name string, f lua.LGFunction) {
		t.RawSetString(name, L.NewFunction(f))
	}

	set("type", func(L *lua.LState) int {
		st, err := signalType(L.CheckAny(1))
		if err != nil {
			return check(L, err)
		}
		return check(L, r.gen.SetSignalType(st))
	})
	set("freq", func(L *lua.LState) int {
		hz, err := toUint32("freq", L.CheckNumber(1))
		if err != nil {
			return check(L, err)
		}
		return check(L, r.gen.SetFrequency(hz))
	})
	set("amp", func(L *lua.LState) int {
		mv, err := toUint32("amp", L.CheckNumber(1))
		if err != nil {
			return check(L, err)
		}
		return check(L, r.gen.SetAmplitude(mv))
	})
	set("duty", func(L *lua.LState) int {
		return check(L, r.gen.SetDutyCycle(float64(L.CheckNumber(1))))
	})
	set("config", func(L *lua.LState) int {
		cfg, err := configFromTable(L.CheckTable(1), r.gen.Config())
		if err != nil {
			return check(L, err)
		}
		return check(L, r.gen.SetSignalConfig(cfg))
	})
	set("preset", func(L *lua.LState) int {
		index, err := toIndex(L.CheckNumber(1))
		if err != nil {
			return check(L, err)
		}
		return check(L, r.gen.SetPreset(index))
	})
	set("load", func(L *lua.LState) int {
		index, err := toIndex(L.CheckNumber(1))
		if err != nil {
			return check(L, err)
		}
		cfg, err := configFromTable(L.CheckTable(2), fngen.DefaultConfig)
		if err != nil {
			return check(L, err)
		}
		return check(L, r.gen.LoadPreset(index, cfg))
	})
	set("get", func(L *lua.LState) int {
		index, err := toIndex(L.CheckNumber(1))
		if err != nil {
			return check(L, err)
		}
		cfg, err := r.gen.GetPreset(index)
		if err != nil {
			return check(L, err)
		}
		L.Push(configToTable(L, cfg))
		return 1
	})
	set("current", func(L *lua.LState) int {
		L.Push(configToTable(L, r.gen.Config()))
		return 1
	})
	set("start", func(L *lua.LState) int { return check(L, r.gen.Start()) })
	set("stop", func(L *lua.LState) int { return check(L, r.gen.Stop()) })
	set("running", func(L *lua.LState) int {
		L.Push(lua.LBool(r.gen.Running()))
		return 1
	})
	return t
}

// toUint32 converts a Lua number without wrapping: negative, fractional
// and out of range values are rejected.
func toUint32(key string, v lua.LNumber) (uint32, error) {
	f := float64(v)
	if f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s = %v", fngen.ErrInvalidArgument, key, v)
	}
	return uint32(f), nil
}

func toIndex(v lua.LNumber) (int, error) {
	f := float64(v)
	if f < math.MinInt32 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v", fngen.ErrUnknownPreset, v)
	}
	return int(f), nil
}

func signalType(v lua.LValue) (fngen.SignalType, error) {
	return fngen.ParseSignalType(v.String())
}

// configFromTable overlays the fields present in t on base.
func configFromTable(t *lua.LTable, base fngen.SignalConfig) (fngen.SignalConfig, error) {
	cfg := base
	if v := t.RawGetString("type"); v != lua.LNil {
		st, err := signalType(v)
		if err != nil {
			return cfg, err
		}
		cfg.Type = st
	}
	for _, f := range []struct {
		key string
		dst *uint32
	}{
		{"freq", &cfg.FrequencyHz},
		{"amp", &cfg.AmplitudeMV},
	} {
		switch v := t.RawGetString(f.key).(type) {
		case lua.LNumber:
			n, err := toUint32(f.key, v)
			if err != nil {
				return cfg, err
			}
			*f.dst = n
		case *lua.LNilType:
		default:
			return cfg, fmt.Errorf("%w: %s must be a number", fngen.ErrInvalidArgument, f.key)
		}
	}
	switch v := t.RawGetString("duty").(type) {
	case lua.LNumber:
		cfg.DutyCycle = float64(v)
	case *lua.LNilType:
	default:
		return cfg, fmt.Errorf("%w: duty must be a number", fngen.ErrInvalidArgument)
	}
	return cfg, nil
}

func configToTable(L *lua.LState, cfg fngen.SignalConfig) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(cfg.Type.String()))
	t.RawSetString("freq", lua.LNumber(cfg.FrequencyHz))
	t.RawSetString("amp", lua.LNumber(cfg.AmplitudeMV))
	t.RawSetString("duty", lua.LNumber(cfg.DutyCycle))
	return t
}
