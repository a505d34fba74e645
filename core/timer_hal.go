package core

import "errors"

var (
	ErrTimerNotConfigured = errors.New("interval timer not configured")
	ErrTimerPeriod        = errors.New("interval timer period out of range")
)

// IntervalTimer is a periodic interrupt source. The callback runs in
// interrupt (or interrupt-like) context at a fixed period and must not block.
type IntervalTimer interface {
	// Configure sets the period and the callback. The timer stays disabled.
	Configure(periodUS uint32, callback func()) error

	// Enable starts periodic callbacks. Enabling an enabled timer is a no-op.
	Enable() error

	// Disable stops periodic callbacks. When Disable returns no callback is
	// running and none will run until the next Enable.
	Disable() error
}

var intervalTimer IntervalTimer

// SetIntervalTimer is called by target-specific code to register its timer.
func SetIntervalTimer(t IntervalTimer) {
	intervalTimer = t
}

// MustIntervalTimer returns the configured timer or panics if missing.
func MustIntervalTimer() IntervalTimer {
	if intervalTimer == nil {
		panic("interval timer not configured")
	}
	return intervalTimer
}
