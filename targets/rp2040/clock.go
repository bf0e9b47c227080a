//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"hidlight/core"
)

// RP2040 timer peripheral: a free-running 64-bit microsecond counter.
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // raw low word, no latching
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// GetHardwareTime returns the low 32 bits of the microsecond counter. It
// wraps every 71 minutes, which the controller's frame arithmetic expects.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// UpdateSystemTime publishes the hardware time to core.SystemClock. Called
// once per main loop pass.
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}
