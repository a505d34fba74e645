package periph

import (
	"errors"
	"sync"
	"sync/atomic"

	"benchscope/core"
)

var ErrNoDevice = errors.New("i2c: no device at address")

// SimDevice is one part on a SimBus.
type SimDevice interface {
	Tx(w, r []byte) error
}

// SimBus is an in-memory drivers.I2C hosting simulated parts. Transfers
// are serialized as on a real bus.
type SimBus struct {
	mu      sync.Mutex
	devices map[uint16]SimDevice
}

func NewSimBus() *SimBus {
	return &SimBus{devices: make(map[uint16]SimDevice)}
}

// Attach places dev at addr, replacing any part already there.
func (b *SimBus) Attach(addr uint16, dev SimDevice) {
	b.mu.Lock()
	b.devices[addr] = dev
	b.mu.Unlock()
}

// Tx implements drivers.I2C.
func (b *SimBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	dev, ok := b.devices[addr]
	if !ok {
		return ErrNoDevice
	}
	return dev.Tx(w, r)
}

// SimPCF8591 models the converter. The analog output is delivered to
// Output and the inputs are sampled from an ADCDriver, keeping the upper
// eight bits.
type SimPCF8591 struct {
	Output func(uint8)
	Input  core.ADCDriver

	control byte
	last    byte
}

// Tx implements SimDevice.
func (s *SimPCF8591) Tx(w, r []byte) error {
	if len(w) > 0 {
		s.control = w[0]
		if len(w) > 1 && s.control&pcfOutputEnable != 0 && s.Output != nil {
			s.Output(w[len(w)-1])
		}
	}
	for i := range r {
		r[i] = s.last
		s.last = s.sample()
	}
	return nil
}

func (s *SimPCF8591) sample() byte {
	if s.Input == nil {
		return 0
	}
	v, err := s.Input.ReadRaw(core.ADCChannel(s.control & 3))
	if err != nil {
		return 0
	}
	return byte(v >> 8)
}

// SimSHT3x models the temperature and humidity sensor in single shot
// mode.
type SimSHT3x struct {
	milliC   atomic.Int32
	humidity atomic.Int32
	pending  bool
}

// NewSimSHT3x returns a sensor reading milliC and humidity in hundredths
// of a percent.
func NewSimSHT3x(milliC int32, humidity int16) *SimSHT3x {
	s := &SimSHT3x{}
	s.Set(milliC, humidity)
	return s
}

// Set changes the measured values.
func (s *SimSHT3x) Set(milliC int32, humidity int16) {
	s.milliC.Store(milliC)
	s.humidity.Store(int32(humidity))
}

// Temperature returns the measured temperature in milli-degrees Celsius.
func (s *SimSHT3x) Temperature() int32 {
	return s.milliC.Load()
}

// Tx implements SimDevice. A read without a preceding measurement command
// is not acknowledged.
func (s *SimSHT3x) Tx(w, r []byte) error {
	if len(w) == 2 && w[0] == 0x24 && w[1] == 0x00 {
		s.pending = true
	}
	if len(r) == 0 {
		return nil
	}
	if !s.pending {
		return ErrNoDevice
	}
	s.pending = false

	t := clampRaw((int64(s.milliC.Load()) + 45000) * 13107 / 35000)
	h := clampRaw(int64(s.humidity.Load()) * 13107 / 2000)
	var frame [6]byte
	frame[0], frame[1] = byte(t>>8), byte(t)
	frame[2] = sensirionCRC(frame[0:2])
	frame[3], frame[4] = byte(h>>8), byte(h)
	frame[5] = sensirionCRC(frame[3:5])
	copy(r, frame[:])
	return nil
}

func clampRaw(v int64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// sensirionCRC is CRC-8 with polynomial 0x31 and initial value 0xFF.
func sensirionCRC(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
