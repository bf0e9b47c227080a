package core

// DefaultFrameRate is the animation frame rate in Hz.
const DefaultFrameRate = 120

// Clock is a free-running microsecond counter that wraps at 2^32.
type Clock interface {
	Micros() uint32
}

// GetTime returns the system time in microseconds as last stored by the
// target's clock update.
func GetTime() uint32 {
	return getSystemMicros()
}

// SetTime sets the system time (for hardware integration and tests).
func SetTime(us uint32) {
	setSystemMicros(us)
}

// SystemClock is the Clock backed by GetTime.
type SystemClock struct{}

// Micros implements Clock.
func (SystemClock) Micros() uint32 {
	return GetTime()
}

// ElapsedMicros returns the time from last to now. Unsigned subtraction
// promotes through the counter's modulus when now has wrapped below last.
func ElapsedMicros(last, now uint32) uint32 {
	return now - last
}

// FramePeriodUS converts a frame rate to a frame period in microseconds.
// A zero rate selects DefaultFrameRate.
func FramePeriodUS(rateHz uint32) uint32 {
	if rateHz == 0 {
		rateHz = DefaultFrameRate
	}
	return 1000000 / rateHz
}

// FramesFromUS converts a duration to a whole number of frames. The result
// truncates, so durations shorter than one period become 0 frames.
func FramesFromUS(us, periodUS uint32) uint32 {
	if periodUS == 0 {
		return 0
	}
	return us / periodUS
}
