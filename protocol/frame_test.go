package protocol

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := AppendVLQUint(nil, 12)
	payload = AppendVLQUint(payload, 1000)

	frame, err := AppendFrame(nil, MessageDest|3, payload)
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if int(frame[0]) != len(frame) {
		t.Errorf("length byte = %d, frame is %d bytes", frame[0], len(frame))
	}
	if frame[len(frame)-1] != MessageValueSync {
		t.Errorf("frame does not end with sync byte")
	}

	r := NewFrameReader()
	r.Feed(frame)
	got, ok := r.Next()
	if !ok {
		t.Fatal("no frame decoded")
	}
	if got.Seq != MessageDest|3 {
		t.Errorf("seq = 0x%02x", got.Seq)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("payload = %v, want %v", got.Payload, payload)
	}
	if _, ok := r.Next(); ok {
		t.Error("unexpected second frame")
	}
}

func TestFrameTooLarge(t *testing.T) {
	if _, err := AppendFrame(nil, MessageDest, make([]byte, MessagePayloadMax+1)); err != ErrFrameTooLarge {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
	if _, err := AppendFrame(nil, MessageDest, make([]byte, MessagePayloadMax)); err != nil {
		t.Errorf("max payload rejected: %v", err)
	}
}

func TestFrameReaderByteAtATime(t *testing.T) {
	var stream []byte
	stream, _ = AppendFrame(stream, MessageDest, []byte{1, 2, 3})
	stream = AppendAck(stream, MessageDest|1)
	stream, _ = AppendFrame(stream, MessageDest|2, []byte{4})

	r := NewFrameReader()
	var frames []Frame
	for _, b := range stream {
		r.Feed([]byte{b})
		for {
			f, ok := r.Next()
			if !ok {
				break
			}
			f.Payload = append([]byte(nil), f.Payload...)
			frames = append(frames, f)
		}
	}

	if len(frames) != 3 {
		t.Fatalf("decoded %d frames, want 3", len(frames))
	}
	if !frames[1].IsAck() || frames[1].Seq != MessageDest|1 {
		t.Errorf("second frame = %+v, want ACK 0x11", frames[1])
	}
	if !bytes.Equal(frames[2].Payload, []byte{4}) {
		t.Errorf("third payload = %v", frames[2].Payload)
	}
}

func TestFrameReaderResync(t *testing.T) {
	good, _ := AppendFrame(nil, MessageDest|5, []byte{9, 9})
	bad, _ := AppendFrame(nil, MessageDest|4, []byte{1, 2})
	bad[2] ^= 0xFF // corrupt payload, CRC no longer matches

	var stream []byte
	stream = append(stream, 0x01, 0x02, 0x03) // line noise
	stream = append(stream, bad...)
	stream = append(stream, good...)

	r := NewFrameReader()
	r.Feed(stream)

	var got []Frame
	for {
		f, ok := r.Next()
		if !ok {
			break
		}
		got = append(got, f)
	}

	if len(got) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(got))
	}
	if got[0].Seq != MessageDest|5 || !bytes.Equal(got[0].Payload, []byte{9, 9}) {
		t.Errorf("frame = %+v", got[0])
	}
	if r.Stats().Resyncs == 0 {
		t.Error("expected at least one resync")
	}
	if r.Buffered() != 0 {
		t.Errorf("%d bytes left buffered", r.Buffered())
	}
}

func TestFrameReaderBadCRC(t *testing.T) {
	frame, _ := AppendFrame(nil, MessageDest, []byte{1, 2, 3})
	frame[len(frame)-2] ^= 0x01

	r := NewFrameReader()
	r.Feed(frame)
	if _, ok := r.Next(); ok {
		t.Fatal("frame with bad CRC accepted")
	}
	if r.Stats().BadCRC != 1 {
		t.Errorf("BadCRC = %d, want 1", r.Stats().BadCRC)
	}
}

func TestNextSeq(t *testing.T) {
	if got := NextSeq(MessageDest); got != 0x11 {
		t.Errorf("NextSeq(0x10) = 0x%02x", got)
	}
	if got := NextSeq(0x1F); got != MessageDest {
		t.Errorf("NextSeq(0x1F) = 0x%02x, want wrap to 0x10", got)
	}
}
