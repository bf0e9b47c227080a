//go:build rp2040

package main

import (
	"fmt"
	"machine"

	"hidlight/config"
	"hidlight/core"
)

// newLampDriver builds the driver selected by the board file. cfg must have
// passed Validate.
func newLampDriver(cfg *config.DeviceConfig) (core.LampDriver, error) {
	switch cfg.Driver {
	case config.DriverPWM:
		return NewPWMLampDriver(cfg.Lamps[:cfg.LampCount], cfg.PWMFrequencyHz)
	case config.DriverWS2812, config.DriverPIOWS2812:
		pin, err := config.ParsePin(cfg.StripPin)
		if err != nil {
			return nil, err
		}
		if cfg.Driver == config.DriverPIOWS2812 {
			return NewPIOStripDriver(machine.Pin(pin), cfg.LampCount)
		}
		return NewStripDriver(machine.Pin(pin), cfg.LampCount), nil
	}
	return nil, fmt.Errorf("unknown lamp driver %q", cfg.Driver)
}

// nopDriver keeps the protocol alive when the lamp hardware cannot be set up.
type nopDriver struct{}

func (nopDriver) SetLamp(uint8, core.LampValue) {}
func (nopDriver) LampOff(uint8)                 {}
