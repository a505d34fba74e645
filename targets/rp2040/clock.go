//go:build rp2040

package main

import (
	"device/rp"

	"benchscope/core"
)

// GetHardwareTime returns the low 32 bits of the 1MHz system timer.
func GetHardwareTime() uint32 {
	return rp.TIMER.TIMERAWL.Get()
}

// GetHardwareUptime reads the full 64-bit timer. The high word is read
// twice to detect a carry between the two reads.
func GetHardwareUptime() uint64 {
	for {
		high1 := rp.TIMER.TIMERAWH.Get()
		low := rp.TIMER.TIMERAWL.Get()
		high2 := rp.TIMER.TIMERAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// UpdateSystemTime updates the core clock from the hardware timer.
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}
