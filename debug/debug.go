// Package debug is the firmware's logging hook. Platform code installs a
// Writer (UART, USB, stdout); everything else calls Println, which is a
// no-op until output is enabled.
//
// A small ring of Events is always captured so the last few frame, commit
// and flash operations can be dumped after the fact without having paid
// for string formatting on the hot path.
package debug

import "io"

// Writer is a function type for writing debug messages
type Writer func(string)

// Event captures a timing-relevant operation for post-mortem analysis
type Event struct {
	Type   uint8  // Event type code
	Lamp   uint8  // Lamp ID, if any
	Clock  uint32 // Microsecond clock at event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtFrame      = 1 // animation frame advanced (Value1=stage, Value2=frame)
	EvtStage      = 2 // animation changed stage (Value1=old, Value2=new)
	EvtCommit     = 3 // lamp output written to the driver
	EvtFlashErase = 4 // settings region erased
	EvtFlashWrite = 5 // settings page programmed (Value1=page)
	EvtReclaim    = 6 // settings region reclaimed (Value1=survivors)
	EvtSuspend    = 7
	EvtResume     = 8
)

const ringSize = 32

var (
	writer  Writer = func(string) {}
	enabled bool

	ring     [ringSize]Event
	ringHead uint8
	clock    func() uint32
)

// SetWriter sets the platform-specific debug output function
func SetWriter(w Writer) {
	if w == nil {
		w = func(string) {}
	}
	writer = w
}

// SetEnabled enables or disables debug output
func SetEnabled(on bool) {
	enabled = on
}

// Enabled returns whether debug output is enabled
func Enabled() bool {
	return enabled
}

// SetClock sets the time source used to stamp events.
func SetClock(c func() uint32) {
	clock = c
}

// Println writes s if output is enabled
func Println(s string) {
	if enabled {
		writer(s)
	}
}

// Record captures an event in the ring buffer. It never blocks.
func Record(typ, lamp uint8, v1, v2 uint32) {
	var now uint32
	if clock != nil {
		now = clock()
	}
	ring[ringHead] = Event{Type: typ, Lamp: lamp, Clock: now, Value1: v1, Value2: v2}
	ringHead = (ringHead + 1) % ringSize
}

// Events returns the captured events, oldest first.
func Events() []Event {
	out := make([]Event, 0, ringSize)
	for i := uint8(0); i < ringSize; i++ {
		evt := ring[(ringHead+i)%ringSize]
		if evt.Type != 0 {
			out = append(out, evt)
		}
	}
	return out
}

// Dump writes the event ring through the writer regardless of SetEnabled.
func Dump() {
	writer("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		writer("[EVENTS] " + EventName(evt.Type) +
			" lamp=" + Utoa(uint32(evt.Lamp)) +
			" clock=" + Utoa(evt.Clock) +
			" v1=" + Utoa(evt.Value1) +
			" v2=" + Utoa(evt.Value2))
	}
	writer("[EVENTS] === End Dump ===")
}

// LineWriter returns an io.Writer that passes each complete line to the
// writer, regardless of SetEnabled. A trailing partial line is held until
// its newline arrives.
func LineWriter() io.Writer {
	return &lineWriter{}
}

type lineWriter struct {
	buf []byte
}

func (l *lineWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			writer(string(l.buf))
			l.buf = l.buf[:0]
			continue
		}
		l.buf = append(l.buf, b)
	}
	return len(p), nil
}

// Clear empties the event ring
func Clear() {
	for i := range ring {
		ring[i] = Event{}
	}
	ringHead = 0
}

// EventName returns the name Dump prints for an event type.
func EventName(t uint8) string {
	switch t {
	case EvtFrame:
		return "FRAME"
	case EvtStage:
		return "STAGE"
	case EvtCommit:
		return "COMMIT"
	case EvtFlashErase:
		return "FLASH_ERASE"
	case EvtFlashWrite:
		return "FLASH_WRITE"
	case EvtReclaim:
		return "RECLAIM"
	case EvtSuspend:
		return "SUSPEND"
	case EvtResume:
		return "RESUME"
	}
	return "UNKNOWN"
}
