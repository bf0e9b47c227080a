//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"hidlight/core"
	"hidlight/debug"
)

// pixelWriter sends a full strip refresh. ws2812.Device implements it.
type pixelWriter interface {
	WriteColors(buf []color.RGBA) error
}

// StripDriver maps each lamp to one pixel of a WS2812 strip. Writes are
// buffered and sent as one strip refresh on Flush.
type StripDriver struct {
	dev    pixelWriter
	pixels []color.RGBA
	dirty  bool
}

// NewStripDriver returns a driver for a strip of count pixels on pin, with
// every pixel dark.
func NewStripDriver(pin machine.Pin, count int) *StripDriver {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d := &StripDriver{
		dev:    ws2812.New(pin),
		pixels: make([]color.RGBA, count),
		dirty:  true,
	}
	d.Flush()
	return d
}

// SetLamp implements core.LampDriver.
func (d *StripDriver) SetLamp(id uint8, v core.LampValue) {
	if int(id) >= len(d.pixels) {
		return
	}
	d.pixels[id] = pixelColor(v)
	d.dirty = true
}

// LampOff implements core.LampDriver.
func (d *StripDriver) LampOff(id uint8) {
	d.SetLamp(id, core.LampOff())
}

// Flush implements core.LampFlusher.
func (d *StripDriver) Flush() {
	if !d.dirty {
		return
	}
	if err := d.dev.WriteColors(d.pixels); err != nil {
		debug.Println("ws2812: " + err.Error())
	}
	d.dirty = false
}

// pixelColor drops a lamp value to 8 bits per channel.
func pixelColor(v core.LampValue) color.RGBA {
	if !v.IsOn() {
		return color.RGBA{A: 0xFF}
	}
	return color.RGBA{R: uint8(v.R >> 8), G: uint8(v.G >> 8), B: uint8(v.B >> 8), A: 0xFF}
}
