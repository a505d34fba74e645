//go:build !tinygo

package core

import (
	"sync"
	"time"
)

// TickerTimer is an IntervalTimer for hosted builds. Go cannot wake a
// goroutine every few microseconds, so it wakes once per resolution and
// runs every period that elapsed since the last wake. The average rate
// matches the configured period; individual callbacks are bunched.
type TickerTimer struct {
	mu         sync.Mutex
	resolution time.Duration
	maxBatch   int
	period     time.Duration
	callback   func()
	stop       chan struct{}
	done       chan struct{}
}

// NewTickerTimer returns a timer that wakes every resolution. A zero
// resolution selects one millisecond.
func NewTickerTimer(resolution time.Duration) *TickerTimer {
	if resolution <= 0 {
		resolution = time.Millisecond
	}
	return &TickerTimer{resolution: resolution}
}

// Configure implements IntervalTimer.
func (t *TickerTimer) Configure(periodUS uint32, callback func()) error {
	if callback == nil {
		return ErrTimerNotConfigured
	}
	if periodUS == 0 {
		return ErrTimerPeriod
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.period = time.Duration(periodUS) * time.Microsecond
	t.callback = callback
	// Never run more than a second of backlog in one wake.
	t.maxBatch = int(time.Second / t.period)
	if t.maxBatch < 1 {
		t.maxBatch = 1
	}
	return nil
}

// Enable implements IntervalTimer.
func (t *TickerTimer) Enable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.callback == nil {
		return ErrTimerNotConfigured
	}
	if t.stop != nil {
		return nil
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.period, t.callback, t.maxBatch, t.stop, t.done)
	return nil
}

// Disable implements IntervalTimer. It waits for the running batch to
// finish, so it must not be called from the callback.
func (t *TickerTimer) Disable() error {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

func (t *TickerTimer) run(period time.Duration, callback func(), maxBatch int, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.resolution)
	defer ticker.Stop()

	start := time.Now()
	var fired int64
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			due := int64(now.Sub(start)/period) - fired
			if due > int64(maxBatch) {
				RecordEvent(EvtTimerPast, uint32(due), uint32(maxBatch))
				fired += due - int64(maxBatch)
				due = int64(maxBatch)
			}
			for ; due > 0; due-- {
				callback()
				fired++
			}
		}
	}
}

// RunHostClock advances the system clock from the wall clock until stop is
// closed. Hosted builds have no hardware counter to read.
func RunHostClock(stop <-chan struct{}) {
	start := time.Now()
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			SetTime(uint32(now.Sub(start) / time.Microsecond))
		}
	}
}
