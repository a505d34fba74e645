//go:build !tinygo

package core

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerTimerRate(t *testing.T) {
	tt := NewTickerTimer(time.Millisecond)
	var ticks atomic.Int64
	if err := tt.Configure(100, func() { ticks.Add(1) }); err != nil {
		t.Fatal(err)
	}
	if err := tt.Enable(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := tt.Disable(); err != nil {
		t.Fatal(err)
	}

	// 100ms at 100us is 1000 ticks; allow for scheduler jitter.
	n := ticks.Load()
	if n < 500 || n > 1500 {
		t.Errorf("ticks = %d, want about 1000", n)
	}

	after := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("callback ran after Disable returned")
	}
}

func TestTickerTimerErrors(t *testing.T) {
	tt := NewTickerTimer(0)
	if err := tt.Enable(); err != ErrTimerNotConfigured {
		t.Errorf("Enable before Configure = %v", err)
	}
	if err := tt.Configure(0, func() {}); err != ErrTimerPeriod {
		t.Errorf("Configure(0) = %v", err)
	}
	if err := tt.Disable(); err != nil {
		t.Errorf("Disable when stopped = %v", err)
	}
}
