//go:build rp2040

package main

import (
	"machine"
	"time"
)

// usbPort adapts the USB CDC serial port to io.ReadWriter. Read polls
// until at least one byte is available.
type usbPort struct{}

func initUSB() error {
	return machine.Serial.Configure(machine.UARTConfig{})
}

func (usbPort) Read(p []byte) (int, error) {
	for machine.Serial.Buffered() == 0 {
		time.Sleep(100 * time.Microsecond)
	}
	n := 0
	for n < len(p) && machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}

func (usbPort) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}
