//go:build tinygo

package core

import "sync/atomic"

var systemMicrosValue uint32

// getSystemMicros returns the current system time
func getSystemMicros() uint32 {
	return atomic.LoadUint32(&systemMicrosValue)
}

// setSystemMicros sets the system time
func setSystemMicros(us uint32) {
	atomic.StoreUint32(&systemMicrosValue, us)
}
