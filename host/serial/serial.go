// Package serial opens the lamp controller's USB-CDC command port.
package serial

import (
	"io"
)

// Port represents a serial port interface. It is satisfied by the native
// port and by in-memory pipes in tests.
type Port interface {
	io.ReadWriteCloser

	// Flush discards input received but not yet read
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC ignores it but the OS requires one
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int

	// How long Open waits for a missing device node, in milliseconds
	OpenWait int
}

// DefaultConfig returns the configuration used for the lamp controller.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
		OpenWait:    2000,
	}
}
