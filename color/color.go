// Package color converts between integer RGB, normalized RGB and Oklab.
//
// Oklab is used as the interpolation space for animations so that a linear
// blend between two colors looks visually linear. Conversion constants are
// Björn Ottosson's published Oklab matrices; both directions use the same
// set so that RGB -> Oklab -> RGB round trips within one level.
package color

import (
	"math"

	"golang.org/x/exp/constraints"
)

// RGB8 is an RGB color with 8-bit channels, as sent by the host.
type RGB8 struct {
	R, G, B uint8
}

// RGB16 is an RGB color with 16-bit channels, as used by the PWM outputs.
type RGB16 struct {
	R, G, B uint16
}

// RGB is a linear RGB color with channels in [0.0, 1.0]. Values produced by
// FromOklab may fall slightly outside that range and are clamped when
// converted back to integers.
type RGB struct {
	R, G, B float32
}

// Lab is an Oklab color. L is lightness, A and B are the opponent chroma axes.
type Lab struct {
	L, A, B float32
}

// Float returns the normalized form of c.
func (c RGB8) Float() RGB {
	return RGB{
		R: float32(c.R) / 255,
		G: float32(c.G) / 255,
		B: float32(c.B) / 255,
	}
}

// Float returns the normalized form of c.
func (c RGB16) Float() RGB {
	return RGB{
		R: float32(c.R) / 65535,
		G: float32(c.G) / 65535,
		B: float32(c.B) / 65535,
	}
}

// IsBlack reports whether all channels are zero.
func (c RGB8) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// RGB8 rounds c to 8-bit channels.
func (c RGB) RGB8() RGB8 {
	return RGB8{
		R: uint8(quantize(c.R, 255)),
		G: uint8(quantize(c.G, 255)),
		B: uint8(quantize(c.B, 255)),
	}
}

// RGB16 rounds c to 16-bit channels.
func (c RGB) RGB16() RGB16 {
	return RGB16{
		R: uint16(quantize(c.R, 65535)),
		G: uint16(quantize(c.G, 65535)),
		B: uint16(quantize(c.B, 65535)),
	}
}

// quantize maps a normalized channel to [0, max], rounding to nearest.
func quantize(c float32, max uint32) uint32 {
	v := math.Floor(float64(c)*float64(max) + 0.5)
	return uint32(clamp(v, 0, float64(max)))
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ToOklab converts a linear RGB color to Oklab.
func ToOklab(c RGB) Lab {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)

	l := 0.4122214708*r + 0.5363325363*g + 0.0514459929*b
	m := 0.2119034982*r + 0.6806995451*g + 0.1073969566*b
	s := 0.0883024619*r + 0.2817188376*g + 0.6299787005*b

	l_ := math.Cbrt(l)
	m_ := math.Cbrt(m)
	s_ := math.Cbrt(s)

	return Lab{
		L: float32(0.2104542553*l_ + 0.7936177850*m_ - 0.0040720468*s_),
		A: float32(1.9779984951*l_ - 2.4285922050*m_ + 0.4505937099*s_),
		B: float32(0.0259040371*l_ + 0.7827717662*m_ - 0.8086757660*s_),
	}
}

// FromOklab converts an Oklab color to linear RGB. The result is not clamped.
func FromOklab(lab Lab) RGB {
	L, a, b := float64(lab.L), float64(lab.A), float64(lab.B)

	l_ := L + 0.3963377774*a + 0.2158037573*b
	m_ := L - 0.1055613458*a - 0.0638541728*b
	s_ := L - 0.0894841775*a - 1.2914855480*b

	l := l_ * l_ * l_
	m := m_ * m_ * m_
	s := s_ * s_ * s_

	return RGB{
		R: float32(+4.0767416621*l - 3.3077115913*m + 0.2309699292*s),
		G: float32(-1.2684380046*l + 2.6097574011*m - 0.3413193965*s),
		B: float32(-0.0041960863*l - 0.7034186147*m + 1.7076147010*s),
	}
}

// LabFromRGB8 is shorthand for ToOklab(c.Float()).
func LabFromRGB8(c RGB8) Lab {
	return ToOklab(c.Float())
}

// Add returns the componentwise sum of c and d.
func (c Lab) Add(d Lab) Lab {
	return Lab{L: c.L + d.L, A: c.A + d.A, B: c.B + d.B}
}

// Sub returns the componentwise difference c - d.
func (c Lab) Sub(d Lab) Lab {
	return Lab{L: c.L - d.L, A: c.A - d.A, B: c.B - d.B}
}

// Div divides every component of c by n.
func (c Lab) Div(n float32) Lab {
	return Lab{L: c.L / n, A: c.A / n, B: c.B / n}
}
