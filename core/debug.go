package core

import (
	"strconv"
	"sync/atomic"
)

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event type codes
const (
	EvtStart       = 1 // generation started
	EvtStop        = 2 // generation stopped
	EvtConfig      = 3 // new signal config published
	EvtPreset      = 4 // preset activated or stored
	EvtSinkError   = 5 // DAC write failed during a tick
	EvtTimerPast   = 6 // interval timer fell behind and caught up
	EvtCommand     = 7 // remote command failed
	EvtPatternLost = 8 // LED pattern tick failed
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

// Event is one entry of the post-mortem ring.
type Event struct {
	Type   uint8
	Clock  uint32
	Value1 uint32
	Value2 uint32
}

// eventSlot stores an Event in atomics so the ring can be written from a
// timer callback while another goroutine dumps it.
type eventSlot struct {
	typ    atomic.Uint32
	clock  atomic.Uint32
	value1 atomic.Uint32
	value2 atomic.Uint32
}

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln atomic.Pointer[DebugWriter]

	// debugEnabled controls whether debug output is active
	debugEnabled atomic.Bool

	eventRing     [EventRingSize]eventSlot
	eventRingHead atomic.Uint32 // total events recorded

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		debugPrintln.Store(nil)
		return
	}
	debugPrintln.Store(&writer)
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled.Load()
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if w := debugPrintln.Load(); w != nil {
			(*w)(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if !debugEnabled.Load() {
		return
	}
	if w := debugPrintln.Load(); w != nil {
		(*w)(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil && debugEnabled.Load() {
		select {
		case debugChan <- msg:
		default:
			// Channel full, drop message
		}
	}
}

// RecordEvent captures an event in the ring buffer. It never blocks or
// allocates and is safe to call from a timer callback.
func RecordEvent(eventType uint8, value1, value2 uint32) {
	idx := (eventRingHead.Add(1) - 1) % EventRingSize
	slot := &eventRing[idx]
	slot.clock.Store(GetTime())
	slot.value1.Store(value1)
	slot.value2.Store(value2)
	slot.typ.Store(uint32(eventType))
}

// Events returns the recorded events from oldest to newest.
func Events() []Event {
	head := eventRingHead.Load()
	n := head
	if n > EventRingSize {
		n = EventRingSize
	}
	out := make([]Event, 0, n)
	for i := head - n; i != head; i++ {
		slot := &eventRing[i%EventRingSize]
		typ := uint8(slot.typ.Load())
		if typ == 0 {
			continue
		}
		out = append(out, Event{
			Type:   typ,
			Clock:  slot.clock.Load(),
			Value1: slot.value1.Load(),
			Value2: slot.value2.Load(),
		})
	}
	return out
}

// EventName returns a short label for an event type.
func EventName(eventType uint8) string {
	switch eventType {
	case EvtStart:
		return "START"
	case EvtStop:
		return "STOP"
	case EvtConfig:
		return "CONFIG"
	case EvtPreset:
		return "PRESET"
	case EvtSinkError:
		return "SINK_ERR!"
	case EvtTimerPast:
		return "TIMER_PAST!"
	case EvtCommand:
		return "CMD_ERR"
	case EvtPatternLost:
		return "LED_ERR"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring buffer (call on shutdown/error)
func DumpEventRing() {
	p := debugPrintln.Load()
	if p == nil {
		return
	}
	w := *p

	w("[EVENT] === Event Ring Dump ===")
	for _, evt := range Events() {
		w("[EVENT] " + EventName(evt.Type) +
			" clock=" + strconv.FormatUint(uint64(evt.Clock), 10) +
			" v1=" + strconv.FormatUint(uint64(evt.Value1), 10) +
			" v2=" + strconv.FormatUint(uint64(evt.Value2), 10))
	}
	w("[EVENT] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i].typ.Store(0)
	}
	eventRingHead.Store(0)
}
