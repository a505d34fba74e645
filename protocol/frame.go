package protocol

import (
	"bytes"
	"errors"
)

var ErrFrameTooLarge = errors.New("frame payload too large")

// Frame is one decoded message block.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// IsAck reports whether the frame carries no commands.
func (f Frame) IsAck() bool {
	return len(f.Payload) == 0
}

// AppendFrame appends a complete frame with the given sequence byte and
// payload to dst.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > MessagePayloadMax {
		return dst, ErrFrameTooLarge
	}
	start := len(dst)
	dst = append(dst, uint8(len(payload)+MessageLengthMin), seq)
	dst = append(dst, payload...)
	dst = AppendCRC16(dst, dst[start:])
	return append(dst, MessageValueSync), nil
}

// AppendAck appends an empty frame announcing the next expected sequence.
func AppendAck(dst []byte, nextSeq uint8) []byte {
	dst, _ = AppendFrame(dst, nextSeq, nil)
	return dst
}

// FrameStats counts stream damage seen by a FrameReader.
type FrameStats struct {
	Frames    uint32
	Discarded uint32 // bytes skipped while looking for a sync byte
	BadCRC    uint32
	Resyncs   uint32
}

// FrameReader splits a byte stream into frames. After a damaged frame it
// drops bytes up to the next sync byte and starts again from there.
type FrameReader struct {
	buf    []byte
	off    int
	synced bool
	stats  FrameStats
}

// NewFrameReader returns a reader that starts synchronized.
func NewFrameReader() *FrameReader {
	return &FrameReader{synced: true}
}

// Feed adds received bytes. Payloads returned by Next are invalidated by
// the following Feed.
func (r *FrameReader) Feed(data []byte) {
	if r.off > 0 {
		n := copy(r.buf, r.buf[r.off:])
		r.buf = r.buf[:n]
		r.off = 0
	}
	r.buf = append(r.buf, data...)
}

// Buffered returns the number of bytes waiting for a complete frame.
func (r *FrameReader) Buffered() int {
	return len(r.buf) - r.off
}

// Stats returns the stream counters.
func (r *FrameReader) Stats() FrameStats {
	return r.stats
}

// Next returns the next valid frame, or false when more data is needed.
func (r *FrameReader) Next() (Frame, bool) {
	for r.off < len(r.buf) {
		data := r.buf[r.off:]

		if !r.synced {
			syncPos := bytes.IndexByte(data, MessageValueSync)
			if syncPos < 0 {
				r.stats.Discarded += uint32(len(data))
				r.off = len(r.buf)
				break
			}
			r.stats.Discarded += uint32(syncPos)
			r.off += syncPos + 1
			r.synced = true
			r.stats.Resyncs++
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			r.off++
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			r.desync()
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			r.desync()
			continue
		}

		// Wait for full message
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			r.desync()
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			r.stats.BadCRC++
			r.desync()
			continue
		}

		r.off += msgLen
		r.stats.Frames++
		return Frame{
			Seq:     seq,
			Payload: data[MessageHeaderSize : msgLen-MessageTrailerSize],
		}, true
	}
	return Frame{}, false
}

// desync drops the current byte and hunts for the next sync byte.
func (r *FrameReader) desync() {
	r.synced = false
	r.off++
	r.stats.Discarded++
}
