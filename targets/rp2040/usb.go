//go:build rp2040

package main

import "machine"

// InitUSB configures machine.Serial, which is the USB CDC-ACM port on the
// RP2040. TinyGo's runtime provides the USB descriptors.
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// USBAvailable returns the number of bytes waiting on USB.
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads one byte from USB.
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes data to USB and returns how much was accepted.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
