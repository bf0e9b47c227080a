package main

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"hidlight/color"
)

var namedColors = map[string]color.RGB8{
	"black":   {0, 0, 0},
	"white":   {255, 255, 255},
	"red":     {255, 0, 0},
	"lime":    {0, 255, 0},
	"green":   {0, 128, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"cyan":    {0, 255, 255},
	"magenta": {255, 0, 255},
	"orange":  {255, 165, 0},
	"purple":  {128, 0, 128},
	"pink":    {255, 192, 203},
}

// parseColor accepts #rrggbb, #rgb (the # is optional) or a CSS color name.
func parseColor(s string) (color.RGB8, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGB8{}, fmt.Errorf("invalid color %q", s)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return color.RGB8{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGB8{R: b[0], G: b[1], B: b[2]}, nil
}

// colorList is a repeatable color flag.
type colorList []color.RGB8

func (l *colorList) String() string {
	parts := make([]string, len(*l))
	for i, c := range *l {
		parts[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return strings.Join(parts, ",")
}

func (l *colorList) Set(s string) error {
	c, err := parseColor(s)
	if err != nil {
		return err
	}
	*l = append(*l, c)
	return nil
}

// lampList is a repeatable lamp id flag.
type lampList []uint8

func (l *lampList) String() string {
	return fmt.Sprint([]uint8(*l))
}

func (l *lampList) Set(s string) error {
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return fmt.Errorf("invalid lamp id %q", s)
	}
	*l = append(*l, uint8(id))
	return nil
}

// secondsToMS converts a duration in fractional seconds to the device's
// 16-bit millisecond fields.
func secondsToMS(name string, sec float64) (uint16, error) {
	ms := math.Round(sec * 1000)
	if ms < 0 || ms > math.MaxUint16 {
		return 0, fmt.Errorf("-%s must be between 0 and 65.535 seconds", name)
	}
	return uint16(ms), nil
}
