package mcu

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"benchscope/fngen"
)

// Generator drives the fn_gen commands of a connected board with the same
// methods as fngen.Engine, so scripts and the panel can run against a
// remote board. Result codes come back as the fngen error sentinels.
type Generator struct {
	mcu     *MCU
	Timeout time.Duration

	mu      sync.Mutex
	last    fngen.SignalConfig // from the latest successful query
	running bool
}

// Status is the run state reported by fn_gen_query.
type Status struct {
	Running bool
	Ticks   uint32
	Dropped uint32
}

// NewGenerator returns a client for the generator on m.
func NewGenerator(m *MCU) *Generator {
	return &Generator{mcu: m, Timeout: time.Second}
}

func (g *Generator) call(name string, values map[string]string) ([]*Response, error) {
	resps, err := g.mcu.Request(name, values, "fn_gen_result", g.Timeout)
	if err != nil {
		return resps, err
	}
	last := resps[len(resps)-1]
	if err := fngen.CodeError(last.Int("code")); err != nil {
		return resps, fmt.Errorf("%s: %w", name, err)
	}
	return resps, nil
}

func u(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

func configValues(cfg fngen.SignalConfig) map[string]string {
	return map[string]string{
		"type": u(uint32(cfg.Type)),
		"freq": u(cfg.FrequencyHz),
		"amp":  u(cfg.AmplitudeMV),
		"duty": u(uint32(math.Round(cfg.DutyCycle * 1000))),
	}
}

func configFrom(r *Response) fngen.SignalConfig {
	return fngen.SignalConfig{
		Type:        fngen.SignalType(r.Uint("type")),
		FrequencyHz: r.Uint("freq"),
		AmplitudeMV: r.Uint("amp"),
		DutyCycle:   float64(r.Uint("duty")) / 1000,
	}
}

// Config queries the active setting. If the board does not answer, the
// last reported setting is returned.
func (g *Generator) Config() fngen.SignalConfig {
	g.Query()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Running queries the run state, falling back like Config.
func (g *Generator) Running() bool {
	g.Query()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *Generator) SetSignalConfig(cfg fngen.SignalConfig) error {
	_, err := g.call("fn_gen_set_config", configValues(cfg))
	return err
}

func (g *Generator) SetFrequency(hz uint32) error {
	_, err := g.call("fn_gen_set_frequency", map[string]string{"freq": u(hz)})
	return err
}

func (g *Generator) SetAmplitude(mv uint32) error {
	_, err := g.call("fn_gen_set_amplitude", map[string]string{"amp": u(mv)})
	return err
}

func (g *Generator) SetDutyCycle(fraction float64) error {
	if fraction < 0 || fraction > 1 || math.IsNaN(fraction) {
		return fmt.Errorf("%w: duty cycle %v", fngen.ErrInvalidArgument, fraction)
	}
	_, err := g.call("fn_gen_set_duty", map[string]string{"duty": u(uint32(math.Round(fraction * 1000)))})
	return err
}

func (g *Generator) SetSignalType(t fngen.SignalType) error {
	_, err := g.call("fn_gen_set_type", map[string]string{"type": u(uint32(t))})
	return err
}

func (g *Generator) Start() error {
	_, err := g.call("fn_gen_start", nil)
	return err
}

func (g *Generator) Stop() error {
	_, err := g.call("fn_gen_stop", nil)
	return err
}

// presetIndex formats index for the one-byte wire field. The board checks
// the table bounds.
func presetIndex(index int) (string, error) {
	if index < 0 || index > math.MaxUint8 {
		return "", fmt.Errorf("%w: %d", fngen.ErrUnknownPreset, index)
	}
	return strconv.Itoa(index), nil
}

// SetPreset activates a stored preset.
func (g *Generator) SetPreset(index int) error {
	idx, err := presetIndex(index)
	if err != nil {
		return err
	}
	_, err = g.call("fn_gen_set_preset", map[string]string{"index": idx})
	return err
}

// GetPreset reads a stored preset.
func (g *Generator) GetPreset(index int) (fngen.SignalConfig, error) {
	idx, err := presetIndex(index)
	if err != nil {
		return fngen.SignalConfig{}, err
	}
	resps, err := g.call("fn_gen_get_preset", map[string]string{"index": idx})
	if err != nil {
		return fngen.SignalConfig{}, err
	}
	for _, r := range resps {
		if r.Name == "fn_gen_preset" {
			return configFrom(r), nil
		}
	}
	return fngen.SignalConfig{}, fmt.Errorf("fn_gen_get_preset: no preset data")
}

// LoadPreset stores cfg in a preset slot without activating it.
func (g *Generator) LoadPreset(index int, cfg fngen.SignalConfig) error {
	idx, err := presetIndex(index)
	if err != nil {
		return err
	}
	values := configValues(cfg)
	values["index"] = idx
	_, err = g.call("fn_gen_load_preset", values)
	return err
}

// Query returns the active setting and the run state.
func (g *Generator) Query() (fngen.SignalConfig, Status, error) {
	resps, err := g.call("fn_gen_query", nil)
	if err != nil {
		return fngen.SignalConfig{}, Status{}, err
	}
	var cfg fngen.SignalConfig
	var st Status
	for _, r := range resps {
		switch r.Name {
		case "fn_gen_config":
			cfg = configFrom(r)
		case "fn_gen_status":
			st = Status{Running: r.Uint("running") != 0, Ticks: r.Uint("ticks"), Dropped: r.Uint("dropped")}
		}
	}
	g.mu.Lock()
	g.last, g.running = cfg, st.Running
	g.mu.Unlock()
	return cfg, st, nil
}
