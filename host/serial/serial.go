package serial

import (
	"io"
	"strings"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Unix socket (the host simulator)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// SocketPrefix selects a unix socket instead of a tty, e.g.
// "unix:/tmp/benchscope.sock".
const SocketPrefix = "unix:"

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3", "unix:/tmp/benchscope.sock")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration used by the generator firmware.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}

// IsSocket reports whether the device names a unix socket.
func (c *Config) IsSocket() bool {
	return strings.HasPrefix(c.Device, SocketPrefix)
}
