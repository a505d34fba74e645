package fngen

import (
	"math"

	"benchscope/core"
	"benchscope/protocol"
)

// RegisterCommands exposes e on a command registry. Every fn_gen command
// answers with fn_gen_result carrying the numeric result code; queries send
// their data first.
func RegisterCommands(reg *core.CommandRegistry, dict *core.Dictionary, e *Engine) {
	h := &commandHandlers{e: e}

	reg.Register("fn_gen_set_config", "type=%c freq=%u amp=%u duty=%hu", h.setConfig)
	reg.Register("fn_gen_set_frequency", "freq=%u", h.setFrequency)
	reg.Register("fn_gen_set_amplitude", "amp=%u", h.setAmplitude)
	reg.Register("fn_gen_set_duty", "duty=%hu", h.setDuty)
	reg.Register("fn_gen_set_type", "type=%c", h.setType)
	reg.Register("fn_gen_start", "", h.start)
	reg.Register("fn_gen_stop", "", h.stop)
	reg.Register("fn_gen_set_preset", "index=%c", h.setPreset)
	reg.Register("fn_gen_get_preset", "index=%c", h.getPreset)
	reg.Register("fn_gen_load_preset", "index=%c type=%c freq=%u amp=%u duty=%hu", h.loadPreset)
	reg.Register("fn_gen_query", "", h.query)

	reg.RegisterResponse("fn_gen_result", "code=%i")
	reg.RegisterResponse("fn_gen_preset", "index=%c type=%c freq=%u amp=%u duty=%hu")
	reg.RegisterResponse("fn_gen_config", "type=%c freq=%u amp=%u duty=%hu")
	reg.RegisterResponse("fn_gen_status", "running=%c ticks=%u dropped=%u")

	dict.AddConstant("FN_GEN_POINT_ARR_LEN", PointCount)
	dict.AddConstant("FN_GEN_PRESET_NUMBER", PresetCount)
	dict.AddConstant("FN_GEN_TIMER_INTR_US", e.periodUS)
	dict.AddConstant("FN_GEN_MIN_FREQ", MinFrequencyHz)
	dict.AddConstant("FN_GEN_MAX_FREQ", MaxFrequencyHz)
	dict.AddConstant("SUPPLY_MV", SupplyMV)
	dict.AddConstant("DAC_FULL_SCALE", FullScale)
	dict.AddEnumeration("signal_type", SignalTypeNames())
}

// Duty cycles travel as per-mille integers.
func dutyFromWire(v uint32) float64 { return float64(v) / 1000 }
func dutyToWire(d float64) uint32   { return uint32(math.Round(d * 1000)) }

// typeFromWire maps values that do not fit a SignalType to an invalid one
// instead of letting them wrap onto a valid shape.
func typeFromWire(v uint32) SignalType {
	if v >= uint32(signalTypeCount) {
		return signalTypeCount
	}
	return SignalType(v)
}

type commandHandlers struct {
	e *Engine
}

func result(out core.Responder, err error) error {
	return out.Respond("fn_gen_result", protocol.AppendVLQInt(nil, Code(err)))
}

func decodeConfig(data *[]byte) (SignalConfig, error) {
	var v [4]uint32
	for i := range v {
		x, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return SignalConfig{}, err
		}
		v[i] = x
	}
	return SignalConfig{
		Type:        typeFromWire(v[0]),
		FrequencyHz: v[1],
		AmplitudeMV: v[2],
		DutyCycle:   dutyFromWire(v[3]),
	}, nil
}

func appendConfig(dst []byte, cfg SignalConfig) []byte {
	dst = protocol.AppendVLQUint(dst, uint32(cfg.Type))
	dst = protocol.AppendVLQUint(dst, cfg.FrequencyHz)
	dst = protocol.AppendVLQUint(dst, cfg.AmplitudeMV)
	return protocol.AppendVLQUint(dst, dutyToWire(cfg.DutyCycle))
}

func (h *commandHandlers) setConfig(data *[]byte, out core.Responder) error {
	cfg, err := decodeConfig(data)
	if err != nil {
		return err
	}
	return result(out, h.e.SetSignalConfig(cfg))
}

func (h *commandHandlers) setFrequency(data *[]byte, out core.Responder) error {
	hz, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return result(out, h.e.SetFrequency(hz))
}

func (h *commandHandlers) setAmplitude(data *[]byte, out core.Responder) error {
	mv, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return result(out, h.e.SetAmplitude(mv))
}

func (h *commandHandlers) setDuty(data *[]byte, out core.Responder) error {
	duty, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return result(out, h.e.SetDutyCycle(dutyFromWire(duty)))
}

func (h *commandHandlers) setType(data *[]byte, out core.Responder) error {
	t, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return result(out, h.e.SetSignalType(typeFromWire(t)))
}

func (h *commandHandlers) start(_ *[]byte, out core.Responder) error {
	return result(out, h.e.Start())
}

func (h *commandHandlers) stop(_ *[]byte, out core.Responder) error {
	return result(out, h.e.Stop())
}

func (h *commandHandlers) setPreset(data *[]byte, out core.Responder) error {
	index, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return result(out, h.e.SetPreset(int(index)))
}

func (h *commandHandlers) getPreset(data *[]byte, out core.Responder) error {
	index, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	cfg, err := h.e.GetPreset(int(index))
	if err == nil {
		args := protocol.AppendVLQUint(nil, index)
		if err := out.Respond("fn_gen_preset", appendConfig(args, cfg)); err != nil {
			return err
		}
	}
	return result(out, err)
}

func (h *commandHandlers) loadPreset(data *[]byte, out core.Responder) error {
	index, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	cfg, err := decodeConfig(data)
	if err != nil {
		return err
	}
	return result(out, h.e.LoadPreset(int(index), cfg))
}

func (h *commandHandlers) query(_ *[]byte, out core.Responder) error {
	if err := out.Respond("fn_gen_config", appendConfig(nil, h.e.Config())); err != nil {
		return err
	}
	st := h.e.Stats()
	var running uint32
	if st.Running {
		running = 1
	}
	args := protocol.AppendVLQUint(nil, running)
	args = protocol.AppendVLQUint(args, uint32(st.Ticks))
	args = protocol.AppendVLQUint(args, uint32(st.Dropped))
	if err := out.Respond("fn_gen_status", args); err != nil {
		return err
	}
	return result(out, nil)
}
