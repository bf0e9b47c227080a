//go:build !tinygo

package core

var systemMicros uint32

// getSystemMicros returns the current system time (regular Go implementation)
func getSystemMicros() uint32 {
	return systemMicros
}

// setSystemMicros sets the system time (regular Go implementation)
func setSystemMicros(us uint32) {
	systemMicros = us
}
