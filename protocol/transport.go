package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// CommandHandler handles one decoded command. It decodes its own arguments
// from data and leaves the rest for the following commands of the frame.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the device side of the link: it accepts command frames,
// acknowledges them and sends response frames.
type Transport struct {
	mu      sync.Mutex
	reader  *FrameReader
	nextSeq uint8
	out     io.Writer
	wbuf    []byte
	handler CommandHandler

	resetCallback func() // Called when a host reset is detected
	errCallback   func(cmdID uint16, err error)
}

// NewTransport creates a transport writing frames to out.
func NewTransport(out io.Writer, handler CommandHandler) *Transport {
	return &Transport{
		reader:  NewFrameReader(),
		nextSeq: MessageDest,
		out:     out,
		handler: handler,
	}
}

// Receive processes bytes read from the link. Handlers run synchronously
// and may call Send.
func (t *Transport) Receive(data []byte) error {
	t.mu.Lock()
	t.reader.Feed(data)
	t.mu.Unlock()

	for {
		t.mu.Lock()
		resyncs := t.reader.Stats().Resyncs
		frame, ok := t.reader.Next()
		resynced := t.reader.Stats().Resyncs != resyncs
		var payload []byte
		run, reset := false, false
		if ok {
			// Host restarted its sequence
			if frame.Seq == MessageDest && t.nextSeq != MessageDest {
				t.nextSeq = MessageDest
				reset = true
			}
			if frame.Seq == t.nextSeq {
				t.nextSeq = NextSeq(frame.Seq)
				payload = append([]byte(nil), frame.Payload...)
				run = true
			}
		}
		seq := t.nextSeq
		resetCB := t.resetCallback
		t.mu.Unlock()

		if reset && resetCB != nil {
			resetCB()
		}
		if resynced || ok {
			// A frame out of sequence gets the same empty frame, which
			// acts as a NAK naming the expected sequence.
			if err := t.write(AppendAck(nil, seq)); err != nil {
				return err
			}
		}
		if run {
			t.parseFrame(payload)
		}
		if !ok {
			return nil
		}
	}
}

// parseFrame runs every command in a payload. A failing command stops the
// rest of its frame.
func (t *Transport) parseFrame(frame []byte) {
	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.reportError(0xFFFF, err)
			return
		}
		if t.handler == nil {
			return
		}
		if err := t.callHandler(uint16(cmdID), &frame); err != nil {
			t.reportError(uint16(cmdID), err)
			return
		}
	}
}

func (t *Transport) callHandler(cmdID uint16, frame *[]byte) (err error) {
	// A panicking handler must not take the link down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %d panicked: %v", cmdID, r)
		}
	}()
	return t.handler(cmdID, frame)
}

func (t *Transport) reportError(cmdID uint16, err error) {
	t.mu.Lock()
	cb := t.errCallback
	t.mu.Unlock()
	if cb != nil {
		cb(cmdID, err)
	}
}

// Send writes one response frame holding a single command.
func (t *Transport) Send(cmdID uint16, args []byte) error {
	payload := AppendVLQUint(make([]byte, 0, len(args)+3), uint32(cmdID))
	payload = append(payload, args...)

	t.mu.Lock()
	seq := t.nextSeq
	t.mu.Unlock()

	frame, err := AppendFrame(nil, seq, payload)
	if err != nil {
		return err
	}
	return t.write(frame)
}

func (t *Transport) write(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.out == nil {
		return errors.New("transport has no output")
	}
	_, err := t.out.Write(frame)
	return err
}

// Reset returns the transport to its power-on state.
func (t *Transport) Reset() {
	t.mu.Lock()
	t.nextSeq = MessageDest
	t.reader = NewFrameReader()
	cb := t.resetCallback
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// NextSequence returns the sequence byte the transport expects next.
func (t *Transport) NextSequence() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextSeq
}

// Stats returns the framing counters.
func (t *Transport) Stats() FrameStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reader.Stats()
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.mu.Lock()
	t.resetCallback = callback
	t.mu.Unlock()
}

// SetErrorCallback sets a callback for commands that fail to decode or run.
func (t *Transport) SetErrorCallback(callback func(cmdID uint16, err error)) {
	t.mu.Lock()
	t.errCallback = callback
	t.mu.Unlock()
}
