package core

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"benchscope/protocol"
)

// Session binds a command registry to one link. Incoming frames are
// dispatched to the registry; handlers answer through the session.
type Session struct {
	reg       *CommandRegistry
	transport *protocol.Transport
}

// NewSession creates a session writing frames to out.
func NewSession(reg *CommandRegistry, out io.Writer) *Session {
	s := &Session{reg: reg}
	s.transport = protocol.NewTransport(out, s.dispatch)
	s.transport.SetErrorCallback(func(cmdID uint16, err error) {
		RecordEvent(EvtCommand, uint32(cmdID), 0)
		DebugPrintln("[session] command " + strconv.Itoa(int(cmdID)) + ": " + err.Error())
	})
	return s
}

func (s *Session) dispatch(cmdID uint16, data *[]byte) error {
	return s.reg.Dispatch(cmdID, data, s)
}

// Respond implements Responder.
func (s *Session) Respond(name string, args []byte) error {
	cmd, ok := s.reg.GetCommandByName(name)
	if !ok || cmd.Handler != nil {
		return fmt.Errorf("response not registered: %s", name)
	}
	return s.transport.Send(cmd.ID, args)
}

// Receive feeds bytes read from the link.
func (s *Session) Receive(data []byte) error {
	return s.transport.Receive(data)
}

// Serve reads from r until it fails. A clean end of stream returns nil.
func (s *Session) Serve(r io.Reader) error {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := s.Receive(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Transport exposes the underlying transport for reset handling.
func (s *Session) Transport() *protocol.Transport {
	return s.transport
}
