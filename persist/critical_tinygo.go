//go:build tinygo

package persist

import "runtime/interrupt"

type interruptState = interrupt.State

// disableInterrupts masks interrupts while flash is unreadable. Nothing may
// fetch from XIP flash between this call and restoreInterrupts.
func disableInterrupts() interruptState {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interruptState) {
	interrupt.Restore(state)
}
