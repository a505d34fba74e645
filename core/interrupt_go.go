//go:build !tinygo

package core

import "sync"

// irqState is unused on regular Go; the critical section is a mutex because
// timers are dispatched from goroutines rather than interrupt handlers.
type irqState uintptr

type critical struct {
	mu sync.Mutex
}

func (c *critical) enter() irqState {
	c.mu.Lock()
	return 0
}

func (c *critical) leave(irqState) {
	c.mu.Unlock()
}
