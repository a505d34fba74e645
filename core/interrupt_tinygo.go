//go:build tinygo

package core

import "runtime/interrupt"

type irqState = interrupt.State

// critical masks interrupts so that a timer interrupt cannot observe a half
// updated timer list.
type critical struct{}

func (c *critical) enter() irqState {
	return interrupt.Disable()
}

func (c *critical) leave(state irqState) {
	interrupt.Restore(state)
}
