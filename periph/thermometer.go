package periph

import (
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/sht3x"

	"benchscope/core"
	"benchscope/protocol"
)

var ErrNoSensor = errors.New("temperature sensor not configured")

// SHT3xAddress is the sensor address with ADDR pulled low.
const SHT3xAddress = sht3x.AddressA

// Thermometer reads the board SHT3x.
type Thermometer struct {
	dev sht3x.Device
}

// NewThermometer returns a thermometer on bus at the sensor's default
// address.
func NewThermometer(bus drivers.I2C) *Thermometer {
	return &Thermometer{dev: sht3x.New(bus)}
}

// SetAddress selects the alternate sensor address.
func (t *Thermometer) SetAddress(addr uint16) {
	t.dev.Address = addr
}

// Read returns the temperature in milli-degrees Celsius and the relative
// humidity in hundredths of a percent. It blocks for one conversion.
func (t *Thermometer) Read() (int32, int16, error) {
	return t.dev.ReadTemperatureHumidity()
}

// RegisterCommands exposes query_temperature. With a nil thermometer the
// command still exists and fails.
func RegisterCommands(reg *core.CommandRegistry, t *Thermometer) {
	reg.Register("query_temperature", "", func(_ *[]byte, out core.Responder) error {
		if t == nil {
			return ErrNoSensor
		}
		mc, hum, err := t.Read()
		if err != nil {
			return err
		}
		args := protocol.AppendVLQInt(nil, mc)
		args = protocol.AppendVLQUint(args, uint32(uint16(hum)))
		return out.Respond("temperature", args)
	})
	reg.RegisterResponse("temperature", "temp_mc=%i hum=%hu")
}
