package core

import "testing"

func TestCaptureDAC(t *testing.T) {
	d := NewCaptureDAC(3)
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	if !d.Configured() {
		t.Error("Configured = false")
	}
	if _, ok := d.Last(); ok {
		t.Error("Last on empty capture reported a sample")
	}

	for _, v := range []uint8{1, 2, 3, 4} {
		if err := d.WriteSample(v); err != nil {
			t.Fatal(err)
		}
	}
	got := d.Samples()
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Errorf("Samples = %v, want [2 3 4]", got)
	}
	if last, _ := d.Last(); last != 4 {
		t.Errorf("Last = %d", last)
	}
	if drained := d.Drain(); len(drained) != 3 {
		t.Errorf("Drain returned %d samples", len(drained))
	}
	if len(d.Samples()) != 0 {
		t.Error("Drain did not clear the capture")
	}
}

func TestCaptureDACFailAfter(t *testing.T) {
	d := NewCaptureDAC(0)
	d.FailAfter(2)
	for i := 0; i < 2; i++ {
		if err := d.WriteSample(uint8(i)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := d.WriteSample(9); err != ErrDACBusy {
		t.Errorf("write after limit = %v, want ErrDACBusy", err)
	}
	d.FailAfter(-1)
	if err := d.WriteSample(9); err != nil {
		t.Errorf("write after clearing fault = %v", err)
	}
}
