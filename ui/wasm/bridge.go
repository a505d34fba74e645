package main

import (
	"benchscope/protocol"
)

// Known before the dictionary is fetched.
const bootstrapDictionary = `{
	"commands": {"identify offset=%u count=%c": 1},
	"responses": {"identify_response offset=%u data=%*s": 0}
}`

// bridge is the browser end of a link. The page moves bytes over Web
// Serial; the bridge frames commands and decodes responses.
type bridge struct {
	codec  *protocol.Codec
	seq    uint8
	reader *protocol.FrameReader
	acked  uint8
}

func newBridge() *bridge {
	codec, err := protocol.ParseDictionary([]byte(bootstrapDictionary))
	if err != nil {
		panic(err)
	}
	return &bridge{codec: codec, seq: protocol.MessageDest, reader: protocol.NewFrameReader()}
}

// loadDictionary switches to the full dictionary assembled from
// identify_response chunks.
func (b *bridge) loadDictionary(raw []byte) error {
	codec, err := protocol.ParseDictionary(raw)
	if err != nil {
		return err
	}
	b.codec = codec
	return nil
}

// encode returns a complete frame carrying command name.
func (b *bridge) encode(name string, values map[string]string) ([]byte, error) {
	id, args, err := b.codec.Encode(name, values)
	if err != nil {
		return nil, err
	}
	payload := protocol.AppendVLQUint(nil, uint32(id))
	payload = append(payload, args...)
	frame, err := protocol.AppendFrame(nil, b.seq, payload)
	if err != nil {
		return nil, err
	}
	b.seq = protocol.NextSeq(b.seq)
	return frame, nil
}

// feed consumes bytes from the board and returns the responses completed
// by them. ACK frames only update the acknowledged sequence.
func (b *bridge) feed(data []byte) ([]*protocol.Response, error) {
	b.reader.Feed(data)
	var out []*protocol.Response
	for {
		frame, ok := b.reader.Next()
		if !ok {
			return out, nil
		}
		if frame.IsAck() {
			b.acked = frame.Seq
			continue
		}
		payload := frame.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return out, err
		}
		resp, err := b.codec.Decode(uint16(id), payload)
		if err != nil {
			return out, err
		}
		out = append(out, resp)
	}
}

func (b *bridge) stats() protocol.FrameStats {
	return b.reader.Stats()
}
