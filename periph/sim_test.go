package periph

import (
	"testing"

	"benchscope/core"
	"benchscope/joystick"
)

func TestSimBusNoDevice(t *testing.T) {
	bus := NewSimBus()
	if err := bus.Tx(0x10, []byte{1}, nil); err != ErrNoDevice {
		t.Errorf("Tx to empty address err = %v", err)
	}
	th := NewThermometer(bus)
	if _, _, err := th.Read(); err != nil {
		t.Errorf("sht3x driver ignores bus errors, got %v", err)
	}
}

func TestSimPCF8591(t *testing.T) {
	var out []uint8
	adc := joystick.NewVirtualADC()
	adc.Set(2, 0xC8FF)
	bus := NewSimBus()
	bus.Attach(PCF8591Address, &SimPCF8591{Output: func(v uint8) { out = append(out, v) }, Input: adc})

	d := NewPCF8591(bus)
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	for _, v := range []uint8{0, 255, 7} {
		if err := d.WriteSample(v); err != nil {
			t.Fatal(err)
		}
	}
	want := []uint8{128, 0, 255, 7}
	if len(out) != len(want) {
		t.Fatalf("output = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("output[%d] = %d, want %d", i, out[i], want[i])
		}
	}

	v, err := d.ReadRaw(2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xC800 {
		t.Errorf("ReadRaw(2) = %#x, want 0xc800", v)
	}
	if len(out) != 4 {
		t.Errorf("an ADC read changed the output: %v", out)
	}
}

func TestSimJoystickThroughPCF8591(t *testing.T) {
	adc := joystick.NewVirtualADC()
	bus := NewSimBus()
	bus.Attach(PCF8591Address, &SimPCF8591{Input: adc})

	x, y := joystick.Axis{Channel: 0}, joystick.Axis{Channel: 1}
	js, err := joystick.New(NewPCF8591(bus), x, y)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []joystick.Position{joystick.Up, joystick.Left, joystick.Right, joystick.Down, joystick.Middle} {
		adc.Push(x, y, p)
		got, err := js.Discrete()
		if err != nil {
			t.Fatal(err)
		}
		if got != p {
			t.Errorf("pushed %v, read %v", p, got)
		}
	}
}

func TestSimSHT3x(t *testing.T) {
	sensor := NewSimSHT3x(25000, 4500)
	bus := NewSimBus()
	bus.Attach(SHT3xAddress, sensor)

	var buf [6]byte
	if err := sensor.Tx(nil, buf[:]); err != ErrNoDevice {
		t.Errorf("read without measurement err = %v", err)
	}

	th := NewThermometer(bus)
	for _, tc := range []struct {
		mc  int32
		hum int16
	}{
		{25000, 4500},
		{40000, 1000},
		{-10000, 9000},
	} {
		sensor.Set(tc.mc, tc.hum)
		mc, hum, err := th.Read()
		if err != nil {
			t.Fatal(err)
		}
		if d := mc - tc.mc; d < -10 || d > 10 {
			t.Errorf("temperature = %d, want %d", mc, tc.mc)
		}
		if d := hum - tc.hum; d < -2 || d > 2 {
			t.Errorf("humidity = %d, want %d", hum, tc.hum)
		}
	}
	if sensor.Temperature() != -10000 {
		t.Errorf("Temperature() = %d", sensor.Temperature())
	}
}

func TestSensirionCRC(t *testing.T) {
	// Datasheet example: 0xBEEF -> 0x92.
	if got := sensirionCRC([]byte{0xBE, 0xEF}); got != 0x92 {
		t.Errorf("crc = %#x, want 0x92", got)
	}
}

var _ core.ADCDriver = (*PCF8591)(nil)
