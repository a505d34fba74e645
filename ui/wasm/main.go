//go:build js && wasm

package main

import (
	"encoding/hex"
	"syscall/js"

	"benchscope/protocol"
)

var link = newBridge()

func main() {
	js.Global().Set("benchscopeWasm", js.ValueOf(map[string]interface{}{
		"encodeCommand":  js.FuncOf(encodeCommandWrapper),
		"feed":           js.FuncOf(feedWrapper),
		"loadDictionary": js.FuncOf(loadDictionaryWrapper),
		"crc16":          js.FuncOf(crc16Wrapper),
		"stats":          js.FuncOf(statsWrapper),
		"version":        protocol.Version,
	}))

	// Keep the program running
	select {}
}

// encodeCommandWrapper frames a command.
// Args: name (string), values (object of strings)
// Returns: {frame: hex string, error: string}
func encodeCommandWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeResult("frame", "", "missing command name")
	}
	values := map[string]string{}
	if len(args) > 1 && args[1].Type() == js.TypeObject {
		keys := js.Global().Get("Object").Call("keys", args[1])
		for i := 0; i < keys.Length(); i++ {
			k := keys.Index(i).String()
			values[k] = args[1].Get(k).String()
		}
	}
	frame, err := link.encode(args[0].String(), values)
	if err != nil {
		return makeResult("frame", "", err.Error())
	}
	return makeResult("frame", hex.EncodeToString(frame), "")
}

// feedWrapper consumes bytes read from the board.
// Args: hexString (string)
// Returns: {responses: [{name, text, values}], error: string}
func feedWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeResult("responses", []interface{}{}, "missing hex string argument")
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return makeResult("responses", []interface{}{}, "invalid hex string: "+err.Error())
	}
	resps, err := link.feed(data)
	list := make([]interface{}, len(resps))
	for i, r := range resps {
		values := make(map[string]interface{}, len(r.Values))
		for k, v := range r.Values {
			switch v := v.(type) {
			case int64:
				values[k] = int(v)
			case []byte:
				values[k] = string(v)
			}
		}
		list[i] = map[string]interface{}{"name": r.Name, "text": r.String(), "values": values}
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return makeResult("responses", list, msg)
}

// loadDictionaryWrapper installs the dictionary JSON.
// Args: json (string)
func loadDictionaryWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeResult("ok", false, "missing dictionary")
	}
	if err := link.loadDictionary([]byte(args[0].String())); err != nil {
		return makeResult("ok", false, err.Error())
	}
	return makeResult("ok", true, "")
}

// crc16Wrapper calculates CRC16 checksum
// Args: hexString (string)
// Returns: number (uint16)
func crc16Wrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(0)
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return js.ValueOf(0)
	}
	return js.ValueOf(int(protocol.CRC16(data)))
}

func statsWrapper(this js.Value, args []js.Value) interface{} {
	s := link.stats()
	return js.ValueOf(map[string]interface{}{
		"frames":    int(s.Frames),
		"discarded": int(s.Discarded),
		"badCRC":    int(s.BadCRC),
		"resyncs":   int(s.Resyncs),
	})
}

// Helper to create result objects
func makeResult(key string, value interface{}, errMsg string) js.Value {
	result := map[string]interface{}{key: value}
	if errMsg != "" {
		result["error"] = errMsg
	}
	return js.ValueOf(result)
}
