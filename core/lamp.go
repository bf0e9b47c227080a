package core

import "hidlight/color"

// Level counts reported in lamp attributes. Host levels are 8-bit per
// channel; intensity is on/off.
const (
	LampColorLevels     = 255
	LampIntensityLevels = 1
)

// LampValue is the output of one lamp: 16-bit channels plus an intensity.
// An intensity of 0 turns the lamp off regardless of color.
type LampValue struct {
	R, G, B uint16
	I       uint8
}

// LampOff returns the value that turns a lamp off.
func LampOff() LampValue {
	return LampValue{}
}

// LampFromRGB16 returns a fully on lamp showing c.
func LampFromRGB16(c color.RGB16) LampValue {
	return LampValue{R: c.R, G: c.G, B: c.B, I: 1}
}

// LampFromLevels maps 8-bit host levels to a LampValue. Squaring each channel
// approximates gamma correction.
func LampFromLevels(r, g, b, i uint8) LampValue {
	return LampValue{
		R: uint16(r) * uint16(r),
		G: uint16(g) * uint16(g),
		B: uint16(b) * uint16(b),
		I: i,
	}
}

// IsOn reports whether the lamp emits light.
func (v LampValue) IsOn() bool {
	return v.I != 0
}

// RGB16 returns the color channels of v.
func (v LampValue) RGB16() color.RGB16 {
	return color.RGB16{R: v.R, G: v.G, B: v.B}
}
