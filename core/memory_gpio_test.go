package core

import "testing"

func TestMemoryGPIO(t *testing.T) {
	var changes []bool
	g := NewMemoryGPIO(func(pin GPIOPin, v bool) {
		if pin != 5 {
			t.Errorf("change on pin %d", pin)
		}
		changes = append(changes, v)
	})

	if err := g.SetPin(5, true); err != ErrPinNotConfigured {
		t.Errorf("SetPin before configure: %v", err)
	}
	if err := g.ConfigureOutput(5); err != nil {
		t.Fatal(err)
	}
	g.SetPin(5, true)
	g.SetPin(5, true)
	g.SetPin(5, false)

	if g.Pin(5) {
		t.Error("pin should be low")
	}
	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("changes = %v, want [true false]", changes)
	}
}
