package mcu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"benchscope/host/serial"
	"benchscope/protocol"
)

// Bootstrap message IDs, fixed before the dictionary is known.
const (
	identifyResponseID = 0
	identifyID         = 1
)

var (
	ErrNotConnected   = errors.New("not connected to MCU")
	ErrNoDictionary   = errors.New("dictionary not loaded")
	ErrUnknownCommand = errors.New("unknown command")
)

// MCU represents a connection to the generator board
type MCU struct {
	transport *protocol.HostTransport

	dictionaryData []byte

	mu        sync.RWMutex
	codec     *protocol.Codec
	connected bool
}

// Dictionary represents the parsed MCU dictionary
type Dictionary = protocol.Dictionary

// Response is a decoded response message.
type Response = protocol.Response

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{}
}

// Connect connects to an MCU via serial port or simulator socket
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to an MCU with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	m.Attach(port)

	// Give MCU time to initialize (if it just powered on)
	if !cfg.IsSocket() {
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

// Attach uses an already open link.
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transport = protocol.NewHostTransport(port)
	m.connected = true
}

// Close closes the connection to the MCU
func (m *MCU) Close() error {
	m.mu.Lock()
	transport := m.transport
	m.connected = false
	m.mu.Unlock()
	if transport != nil {
		return transport.Close()
	}
	return nil
}

// IsConnected returns whether the MCU is connected
func (m *MCU) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// RetrieveDictionary retrieves the complete dictionary from the MCU
func (m *MCU) RetrieveDictionary() error {
	if !m.IsConnected() {
		return ErrNotConnected
	}

	var dictBuffer bytes.Buffer
	offset := uint32(0)
	chunkSize := uint8(40)
	maxIterations := 1000 // Safety limit

	for i := 0; i < maxIterations; i++ {
		chunk, err := m.sendIdentify(offset, chunkSize)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		dictBuffer.Write(chunk)
		offset += uint32(len(chunk))

		// A short chunk is the last one
		if len(chunk) < int(chunkSize) {
			break
		}
	}

	m.dictionaryData = dictBuffer.Bytes()
	if err := m.parseDictionary(); err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}
	return nil
}

// sendIdentify sends an identify command and waits for response
func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	m.transport.DrainResponses()

	args := protocol.AppendVLQUint(nil, offset)
	args = protocol.AppendVLQUint(args, uint32(count))
	if err := m.transport.SendCommand(identifyID, args); err != nil {
		return nil, fmt.Errorf("failed to send identify command: %w", err)
	}

	resp, err := m.transport.ReceiveResponse(time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to receive identify response: %w", err)
	}
	if resp.CmdID != identifyResponseID {
		return nil, fmt.Errorf("unexpected response command ID: %d (expected %d)", resp.CmdID, identifyResponseID)
	}

	payload := resp.Args
	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}

	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}
	return append([]byte(nil), data...), nil
}

// parseDictionary parses the dictionary JSON and the message formats it
// lists.
func (m *MCU) parseDictionary() error {
	codec, err := protocol.ParseDictionary(m.dictionaryData)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.codec = codec
	m.mu.Unlock()
	return nil
}

func (m *MCU) getCodec() *protocol.Codec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.codec
}

// GetDictionary returns the parsed dictionary
func (m *MCU) GetDictionary() *Dictionary {
	if c := m.getCodec(); c != nil {
		return c.Dictionary()
	}
	return nil
}

// GetDictionaryRaw returns the raw dictionary data
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// Constant returns a dictionary constant.
func (m *MCU) Constant(name string) (string, bool) {
	if c := m.getCodec(); c != nil {
		return c.Constant(name)
	}
	return "", false
}

// CommandFormats returns the known commands in ID order.
func (m *MCU) CommandFormats() []protocol.MessageFormat {
	if c := m.getCodec(); c != nil {
		return c.CommandFormats()
	}
	return nil
}

// PrintDictionary writes a summary of the dictionary to w
func (m *MCU) PrintDictionary(w io.Writer) {
	dict := m.GetDictionary()
	if dict == nil {
		fmt.Fprintln(w, "No dictionary loaded")
		return
	}

	fmt.Fprintln(w, "=== MCU Dictionary ===")
	fmt.Fprintf(w, "Version: %s\n", dict.Version)
	fmt.Fprintf(w, "Build: %s\n", dict.BuildVersions)

	fmt.Fprintln(w, "\nConfig:")
	keys := make([]string, 0, len(dict.Config))
	for k := range dict.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, dict.Config[k])
	}

	fmt.Fprintf(w, "\nCommands (%d):\n", len(dict.Commands))
	for _, name := range protocol.SortedNames(dict.Commands) {
		fmt.Fprintf(w, "  [%d] %s\n", dict.Commands[name], name)
	}

	fmt.Fprintf(w, "\nResponses (%d):\n", len(dict.Responses))
	for _, name := range protocol.SortedNames(dict.Responses) {
		fmt.Fprintf(w, "  [%d] %s\n", dict.Responses[name], name)
	}

	if len(dict.Enumerations) > 0 {
		fmt.Fprintf(w, "\nEnumerations (%d):\n", len(dict.Enumerations))
		for name, values := range dict.Enumerations {
			fmt.Fprintf(w, "  %s: %d values\n", name, len(values))
		}
	}
}

func (m *MCU) lookup() (*protocol.Codec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	if m.codec == nil {
		return nil, ErrNoDictionary
	}
	return m.codec, nil
}

// SendCommand encodes values with the dictionary format of name and sends
// the command.
func (m *MCU) SendCommand(name string, values map[string]string) error {
	codec, err := m.lookup()
	if err != nil {
		return err
	}
	id, args, err := codec.Encode(name, values)
	if errors.Is(err, protocol.ErrUnknownMessage) {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if err != nil {
		return err
	}
	return m.transport.SendCommand(id, args)
}

// Request sends a command and collects its responses until one named
// until arrives. Responses queued before the command are discarded.
func (m *MCU) Request(name string, values map[string]string, until string, timeout time.Duration) ([]*Response, error) {
	codec, err := m.lookup()
	if err != nil {
		return nil, err
	}
	if _, _, err := codec.Lookup(name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	m.transport.DrainResponses()
	if err := m.SendCommand(name, values); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	var out []*Response
	for {
		msg, err := m.transport.ReceiveResponse(time.Until(deadline))
		if err != nil {
			return out, fmt.Errorf("%s: waiting for %s: %w", name, until, err)
		}
		resp, err := m.decode(msg)
		if err != nil {
			return out, err
		}
		out = append(out, resp)
		if resp.Name == until {
			return out, nil
		}
	}
}

// ReceiveResponse waits for the next response and decodes it.
func (m *MCU) ReceiveResponse(timeout time.Duration) (*Response, error) {
	msg, err := m.transport.ReceiveResponse(timeout)
	if err != nil {
		return nil, err
	}
	return m.decode(msg)
}

func (m *MCU) decode(msg *protocol.Message) (*Response, error) {
	codec := m.getCodec()
	if codec == nil {
		return nil, ErrNoDictionary
	}
	return codec.Decode(msg.CmdID, msg.Args)
}

// Stats returns the framing counters of the link.
func (m *MCU) Stats() protocol.FrameStats {
	return m.transport.Stats()
}
