package core

// LampDriver is the abstract lamp output that the controller commits to.
// Platform-specific implementations handle the actual hardware (PWM pins,
// WS2812 pixels). Calls are synchronous and assumed to succeed.
type LampDriver interface {
	// SetLamp writes one lamp's output immediately.
	SetLamp(id uint8, v LampValue)

	// LampOff turns one lamp off immediately.
	LampOff(id uint8)
}

// LampFlusher is implemented by drivers that buffer SetLamp and LampOff
// calls and push them to the hardware in one transfer, such as a pixel
// strip. The controller calls Flush after each batch of writes.
type LampFlusher interface {
	Flush()
}

func flushDriver(d LampDriver) {
	if f, ok := d.(LampFlusher); ok {
		f.Flush()
	}
}
