package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by WakeTime and runs them as its clock is
// advanced. Handlers run inside the scheduler's critical section and must
// not call back into the scheduler; a handler that wants to run again
// updates WakeTime and returns SF_RESCHEDULE.
type Scheduler struct {
	cs   critical
	list *Timer
	now  uint32
}

// NewScheduler returns a scheduler whose clock starts at now.
func NewScheduler(now uint32) *Scheduler {
	return &Scheduler{now: now}
}

// Now returns the scheduler clock in timer ticks.
func (s *Scheduler) Now() uint32 {
	state := s.cs.enter()
	defer s.cs.leave(state)
	return s.now
}

// Add inserts t in WakeTime order.
func (s *Scheduler) Add(t *Timer) {
	state := s.cs.enter()
	defer s.cs.leave(state)
	s.insert(t)
}

// Remove unlinks t. It reports whether t was scheduled.
func (s *Scheduler) Remove(t *Timer) bool {
	state := s.cs.enter()
	defer s.cs.leave(state)
	return s.remove(t)
}

func (s *Scheduler) remove(t *Timer) bool {
	for p := &s.list; *p != nil; p = &(*p).Next {
		if *p == t {
			*p = t.Next
			t.Next = nil
			return true
		}
	}
	return false
}

// Pending returns the number of scheduled timers.
func (s *Scheduler) Pending() int {
	state := s.cs.enter()
	defer s.cs.leave(state)
	n := 0
	for t := s.list; t != nil; t = t.Next {
		n++
	}
	return n
}

// Advance moves the clock forward by ticks, dispatching every timer that
// falls due on the way in WakeTime order.
func (s *Scheduler) Advance(ticks uint32) {
	s.AdvanceTo(s.Now() + ticks)
}

// AdvanceTo moves the clock to target, dispatching due timers. Times are
// compared with wrap-around arithmetic, so target must be less than half
// the counter range ahead of the current clock.
func (s *Scheduler) AdvanceTo(target uint32) {
	state := s.cs.enter()
	defer s.cs.leave(state)

	for s.list != nil && !timerAfter(s.list.WakeTime, target) {
		t := s.list
		s.list = t.Next
		t.Next = nil // Clear Next pointer to avoid circular references

		if timerAfter(t.WakeTime, s.now) {
			s.now = t.WakeTime
		}
		if t.Handler(t) == SF_RESCHEDULE {
			s.insert(t)
		}
	}
	s.now = target
}

func (s *Scheduler) insert(t *Timer) {
	if s.list == nil || timerAfter(s.list.WakeTime, t.WakeTime) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !timerAfter(current.Next.WakeTime, t.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// timerAfter reports whether a is later than b on the wrapping clock.
func timerAfter(a, b uint32) bool {
	return int32(a-b) > 0
}

// PeriodicTimer is an IntervalTimer backed by a Scheduler. Callbacks fire
// once per period of scheduler time, so tests and simulators control
// exactly how many ticks happen.
type PeriodicTimer struct {
	sched    *Scheduler
	timer    Timer
	period   uint32
	callback func()
	enabled  bool
}

// NewPeriodicTimer returns a disabled timer on sched.
func NewPeriodicTimer(sched *Scheduler) *PeriodicTimer {
	pt := &PeriodicTimer{sched: sched}
	pt.timer.Handler = pt.fire
	return pt
}

// Configure implements IntervalTimer.
func (pt *PeriodicTimer) Configure(periodUS uint32, callback func()) error {
	if callback == nil {
		return ErrTimerNotConfigured
	}
	period := TimerFromUS(periodUS)
	if period == 0 {
		return ErrTimerPeriod
	}
	state := pt.sched.cs.enter()
	pt.period = period
	pt.callback = callback
	pt.sched.cs.leave(state)
	return nil
}

// Enable implements IntervalTimer.
func (pt *PeriodicTimer) Enable() error {
	state := pt.sched.cs.enter()
	defer pt.sched.cs.leave(state)
	if pt.callback == nil {
		return ErrTimerNotConfigured
	}
	if pt.enabled {
		return nil
	}
	pt.enabled = true
	pt.timer.WakeTime = pt.sched.now + pt.period
	pt.sched.insert(&pt.timer)
	return nil
}

// Disable implements IntervalTimer. It must not be called from a timer
// callback.
func (pt *PeriodicTimer) Disable() error {
	state := pt.sched.cs.enter()
	defer pt.sched.cs.leave(state)
	pt.sched.remove(&pt.timer)
	pt.enabled = false
	return nil
}

func (pt *PeriodicTimer) fire(t *Timer) uint8 {
	pt.callback()
	t.WakeTime += pt.period
	return SF_RESCHEDULE
}
