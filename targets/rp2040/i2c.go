//go:build rp2040

package main

import (
	"errors"
	"machine"
	"sync"
)

const sensorBusHz = 400 * machine.KHz

// sharedI2C serializes transfers on a machine.I2C. The panel goroutine and
// the host command handlers both read the sensor.
type sharedI2C struct {
	mu  sync.Mutex
	bus *machine.I2C
}

// configureI2C brings up a bus on its default pins (I2C0: SDA=GP4,
// SCL=GP5; I2C1: SDA=GP6, SCL=GP7).
func configureI2C(id int) (*sharedI2C, error) {
	var bus *machine.I2C
	switch id {
	case 0:
		bus = machine.I2C0
	case 1:
		bus = machine.I2C1
	default:
		return nil, errors.New("unsupported I2C bus ID")
	}
	if err := bus.Configure(machine.I2CConfig{Frequency: sensorBusHz}); err != nil {
		return nil, err
	}
	return &sharedI2C{bus: bus}, nil
}

// Tx implements drivers.I2C.
func (s *sharedI2C) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Tx(addr, w, r)
}
