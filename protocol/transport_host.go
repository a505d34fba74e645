package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var ErrTransportClosed = errors.New("transport closed")

// ResponseHandler is called from the read loop for every response frame.
type ResponseHandler func(msg *Message)

// Message is one response command received from the device.
type Message struct {
	Seq   uint8
	CmdID uint16
	Args  []byte // VLQ encoded arguments, owned by the receiver
}

// HostTransport is the host side of the link: it sends command frames,
// waits for their ACKs and collects responses.
type HostTransport struct {
	port io.ReadWriteCloser

	sendMu     sync.Mutex // one outstanding command at a time
	currentSeq uint8      // guarded by sendMu

	ackChan      chan uint8
	responseChan chan *Message

	handlerMu       sync.Mutex
	responseHandler ResponseHandler

	statsMu sync.Mutex
	stats   FrameStats

	closeOnce sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// MaxSendAttempts bounds retransmissions of a NAKed command.
const MaxSendAttempts = 3

// NewHostTransport starts a transport reading from port.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   MessageDest,
		ackChan:      make(chan uint8, 4),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SendCommand sends a command and waits up to two seconds for its ACK.
func (t *HostTransport) SendCommand(cmdID uint16, args []byte) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

// SendCommandWithTimeout sends a command with a custom ACK timeout. A NAK
// naming a different sequence makes the transport adopt it and retransmit.
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args []byte, timeout time.Duration) error {
	payload := AppendVLQUint(make([]byte, 0, len(args)+3), uint32(cmdID))
	payload = append(payload, args...)
	if len(payload) > MessagePayloadMax {
		return fmt.Errorf("command %d: %w", cmdID, ErrFrameTooLarge)
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	// Discard stale ACKs from an earlier timed out command.
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}

	for attempt := 1; ; attempt++ {
		msg, _ := AppendFrame(nil, t.currentSeq, payload)
		if err := t.writeMessage(msg); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}

		ack, err := t.waitForAck(timeout)
		if err != nil {
			return err
		}
		want := NextSeq(t.currentSeq)
		if ack == want {
			t.currentSeq = want
			return nil
		}
		if attempt == MaxSendAttempts {
			return fmt.Errorf("sequence mismatch: expected 0x%02x, got 0x%02x", want, ack)
		}
		t.currentSeq = ack
	}
}

func (t *HostTransport) writeMessage(msg []byte) error {
	n, err := t.port.Write(msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}
	return nil
}

func (t *HostTransport) waitForAck(timeout time.Duration) (uint8, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case seq := <-t.ackChan:
		return seq, nil
	case <-timer.C:
		return 0, fmt.Errorf("ACK timeout after %v", timeout)
	case <-t.stopChan:
		return 0, ErrTransportClosed
	}
}

// ReceiveResponse returns the next response, waiting up to timeout.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stopChan:
		return nil, ErrTransportClosed
	}
}

// SetResponseHandler sets a callback for handling responses asynchronously
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	t.responseHandler = handler
	t.handlerMu.Unlock()
}

// Stats returns framing counters for the receive direction.
func (t *HostTransport) Stats() FrameStats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	reader := NewFrameReader()
	buffer := make([]byte, 256)
	for {
		n, err := t.port.Read(buffer)
		if n > 0 {
			reader.Feed(buffer[:n])
			for {
				frame, ok := reader.Next()
				if !ok {
					break
				}
				t.dispatch(frame)
			}
			t.statsMu.Lock()
			t.stats = reader.Stats()
			t.statsMu.Unlock()
		}
		if err != nil {
			select {
			case <-t.stopChan:
				return
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			// Serial ports report timeouts as errors; keep reading.
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (t *HostTransport) dispatch(frame Frame) {
	if frame.IsAck() {
		select {
		case t.ackChan <- frame.Seq:
		default:
		}
		return
	}

	// Responses carry one command per frame; its arguments run to the end.
	payload := frame.Payload
	cmdID, err := DecodeVLQUint(&payload)
	if err != nil {
		return
	}
	msg := &Message{
		Seq:   frame.Seq,
		CmdID: uint16(cmdID),
		Args:  append([]byte(nil), payload...),
	}

	t.handlerMu.Lock()
	handler := t.responseHandler
	t.handlerMu.Unlock()
	if handler != nil {
		handler(msg)
	}

	select {
	case t.responseChan <- msg:
	default:
		// Response channel full, drop oldest
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the read loop and closes the port.
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// DrainResponses discards queued responses.
func (t *HostTransport) DrainResponses() {
	for {
		select {
		case <-t.responseChan:
		default:
			return
		}
	}
}

// CurrentSequence returns the sequence byte of the next command.
func (t *HostTransport) CurrentSequence() uint8 {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	return t.currentSeq
}
