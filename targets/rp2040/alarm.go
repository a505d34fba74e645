//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"

	"benchscope/core"
)

// Shortest period the alarm accepts; the sample callback needs a few
// microseconds.
const minAlarmPeriodUS = 10

// alarmTimer implements core.IntervalTimer on one alarm of the 1MHz
// system timer. The TinyGo runtime sleeps on alarm 0.
type alarmTimer struct {
	bit      uint32
	alarm    *volatile.Register32
	period   uint32
	next     uint32
	callback func()
	enabled  bool
}

var (
	sampleAlarm = &alarmTimer{bit: 1 << 1, alarm: &rp.TIMER.ALARM1}
	ledAlarm    = &alarmTimer{bit: 1 << 2, alarm: &rp.TIMER.ALARM2}
)

// initAlarms installs the interrupt handlers. The alarms stay disabled
// until Enable.
func initAlarms() {
	interrupt.New(rp.IRQ_TIMER_IRQ_1, func(interrupt.Interrupt) { sampleAlarm.fire() }).Enable()
	interrupt.New(rp.IRQ_TIMER_IRQ_2, func(interrupt.Interrupt) { ledAlarm.fire() }).Enable()
}

// Configure implements core.IntervalTimer.
func (a *alarmTimer) Configure(periodUS uint32, callback func()) error {
	if callback == nil {
		return core.ErrTimerNotConfigured
	}
	if periodUS < minAlarmPeriodUS {
		return core.ErrTimerPeriod
	}
	state := interrupt.Disable()
	a.period = core.TimerFromUS(periodUS)
	a.callback = callback
	interrupt.Restore(state)
	return nil
}

// Enable implements core.IntervalTimer.
func (a *alarmTimer) Enable() error {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	if a.callback == nil {
		return core.ErrTimerNotConfigured
	}
	if a.enabled {
		return nil
	}
	a.enabled = true
	a.next = rp.TIMER.TIMERAWL.Get() + a.period
	rp.TIMER.INTR.Set(a.bit)
	rp.TIMER.INTE.SetBits(a.bit)
	a.alarm.Set(a.next)
	return nil
}

// Disable implements core.IntervalTimer.
func (a *alarmTimer) Disable() error {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	rp.TIMER.INTE.ClearBits(a.bit)
	rp.TIMER.ARMED.Set(a.bit)
	rp.TIMER.INTR.Set(a.bit)
	a.enabled = false
	return nil
}

func (a *alarmTimer) fire() {
	rp.TIMER.INTR.Set(a.bit)
	if !a.enabled {
		return
	}
	a.next += a.period
	now := rp.TIMER.TIMERAWL.Get()
	if int32(a.next-now) <= 0 {
		core.RecordEvent(core.EvtTimerPast, now-a.next, a.period)
		a.next = now + a.period
	}
	a.alarm.Set(a.next)
	a.callback()
}
