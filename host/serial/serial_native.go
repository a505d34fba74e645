//go:build !wasm

package serial

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens a native serial port, or dials the simulator when the device
// carries SocketPrefix.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.IsSocket() {
		return DialSocket(strings.TrimPrefix(cfg.Device, SocketPrefix))
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &NativePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read reads data from the serial port
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards data received but not yet read.
func (p *NativePort) Flush() error {
	return p.port.Flush()
}

// SocketPort is a Port over a stream connection.
type SocketPort struct {
	net.Conn
}

// DialSocket connects to a unix socket.
func DialSocket(path string) (*SocketPort, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	return &SocketPort{Conn: conn}, nil
}

// Flush is a no-op; socket writes are not buffered.
func (p *SocketPort) Flush() error {
	return nil
}
