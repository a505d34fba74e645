package core

import "benchscope/protocol"

// InitCoreCommands registers the protocol level commands. It must run on
// a fresh registry: the host bootstraps with identify_response = 0 and
// identify = 1.
func InitCoreCommands(reg *CommandRegistry, dict *Dictionary) {
	reg.RegisterResponse("identify_response", "offset=%u data=%*s") // ID 0
	reg.Register("identify", "offset=%u count=%c", identifyHandler(dict))

	reg.Register("get_uptime", "", handleGetUptime)
	reg.Register("get_clock", "", handleGetClock)
	reg.Register("get_events", "", handleGetEvents)

	reg.RegisterResponse("uptime", "high=%u clock=%u")
	reg.RegisterResponse("clock", "clock=%u")
	reg.RegisterResponse("event", "type=%c clock=%u v1=%u v2=%u")

	dict.AddConstant("CLOCK_FREQ", uint32(TimerFreq))
}

// identifyHandler returns chunks of the data dictionary
func identifyHandler(dict *Dictionary) CommandHandler {
	return func(data *[]byte, out Responder) error {
		offset, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		count, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}

		chunk := dict.GetChunk(offset, uint8(count))

		args := protocol.AppendVLQUint(nil, offset)
		args = protocol.AppendVLQBytes(args, chunk)
		return out.Respond("identify_response", args)
	}
}

// handleGetUptime returns the 64-bit uptime split in two words
func handleGetUptime(_ *[]byte, out Responder) error {
	uptime := GetUptime()
	args := protocol.AppendVLQUint(nil, uint32(uptime>>32))
	args = protocol.AppendVLQUint(args, uint32(uptime))
	return out.Respond("uptime", args)
}

// handleGetClock returns the current clock value
func handleGetClock(_ *[]byte, out Responder) error {
	return out.Respond("clock", protocol.AppendVLQUint(nil, GetTime()))
}

// handleGetEvents sends the post-mortem ring, oldest first, one event per
// response.
func handleGetEvents(_ *[]byte, out Responder) error {
	for _, evt := range Events() {
		args := protocol.AppendVLQUint(nil, uint32(evt.Type))
		args = protocol.AppendVLQUint(args, evt.Clock)
		args = protocol.AppendVLQUint(args, evt.Value1)
		args = protocol.AppendVLQUint(args, evt.Value2)
		if err := out.Respond("event", args); err != nil {
			return err
		}
	}
	return nil
}
