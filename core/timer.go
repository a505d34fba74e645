package core

import "sync/atomic"

// TimerFreq is the system clock rate in ticks per second. Both supported
// boards expose a free running 1MHz counter, so one tick is one microsecond.
const TimerFreq = 1000000

var (
	systemTicks atomic.Uint32
	uptimeHigh  atomic.Uint32 // Incremented each time systemTicks wraps
	bootTime    uint32
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return systemTicks.Load()
}

// SetTime sets the current system time (called from the target clock update
// and by tests). A value lower than the previous one counts as a wrap.
func SetTime(ticks uint32) {
	prev := systemTicks.Swap(ticks)
	if ticks < prev {
		uptimeHigh.Add(1)
	}
}

// GetUptime returns 64-bit uptime in timer ticks
func GetUptime() uint64 {
	return (uint64(uptimeHigh.Load())<<32 | uint64(GetTime())) - uint64(bootTime)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// TimerInit records the boot time; call after the target clock is running.
func TimerInit() {
	bootTime = GetTime()
	uptimeHigh.Store(0)
}
