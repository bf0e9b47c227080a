package core

import (
	"encoding/binary"

	"hidlight/color"
	"hidlight/persist"
)

// BreatheData is the parameter block of a breathe animation. Times are in
// milliseconds. A black OffColor reuses the on color; the off target is
// always fully dark. An OffFadeMS of 0 reuses OnFadeMS.
type BreatheData struct {
	OnColor   color.RGB8
	OffColor  color.RGB8
	OnFadeMS  uint16
	OnMS      uint16
	OffFadeMS uint16
	OffMS     uint16
}

// FadeData is the parameter block of a fade animation. Every target uses the
// same fade and hold times.
type FadeData struct {
	ColorCount uint8
	Colors     [MaxFadeTargets]color.RGB8
	FadeMS     uint16
	HoldMS     uint16
}

const (
	breatheDataSize = 3 + 3 + 4*2
	fadeDataSize    = 1 + 3*MaxFadeTargets + 2*2
)

// Both parameter blocks must fit in a record.
var (
	_ [persist.RecordDataSize - breatheDataSize]byte
	_ [persist.RecordDataSize - fadeDataSize]byte
)

func putRGB8(b []byte, c color.RGB8) {
	b[0], b[1], b[2] = c.R, c.G, c.B
}

func getRGB8(b []byte) color.RGB8 {
	return color.RGB8{R: b[0], G: b[1], B: b[2]}
}

// Encode packs d into a record data block, little endian.
func (d BreatheData) Encode() (data [persist.RecordDataSize]byte) {
	putRGB8(data[0:], d.OnColor)
	putRGB8(data[3:], d.OffColor)
	binary.LittleEndian.PutUint16(data[6:], d.OnFadeMS)
	binary.LittleEndian.PutUint16(data[8:], d.OnMS)
	binary.LittleEndian.PutUint16(data[10:], d.OffFadeMS)
	binary.LittleEndian.PutUint16(data[12:], d.OffMS)
	return data
}

// DecodeBreatheData unpacks a record data block.
func DecodeBreatheData(data [persist.RecordDataSize]byte) BreatheData {
	return BreatheData{
		OnColor:   getRGB8(data[0:]),
		OffColor:  getRGB8(data[3:]),
		OnFadeMS:  binary.LittleEndian.Uint16(data[6:]),
		OnMS:      binary.LittleEndian.Uint16(data[8:]),
		OffFadeMS: binary.LittleEndian.Uint16(data[10:]),
		OffMS:     binary.LittleEndian.Uint16(data[12:]),
	}
}

// Encode packs d into a record data block, little endian.
func (d FadeData) Encode() (data [persist.RecordDataSize]byte) {
	data[0] = d.ColorCount
	for i, c := range d.Colors {
		putRGB8(data[1+3*i:], c)
	}
	binary.LittleEndian.PutUint16(data[1+3*MaxFadeTargets:], d.FadeMS)
	binary.LittleEndian.PutUint16(data[3+3*MaxFadeTargets:], d.HoldMS)
	return data
}

// DecodeFadeData unpacks a record data block.
func DecodeFadeData(data [persist.RecordDataSize]byte) FadeData {
	d := FadeData{
		ColorCount: data[0],
		FadeMS:     binary.LittleEndian.Uint16(data[1+3*MaxFadeTargets:]),
		HoldMS:     binary.LittleEndian.Uint16(data[3+3*MaxFadeTargets:]),
	}
	for i := range d.Colors {
		d.Colors[i] = getRGB8(data[1+3*i:])
	}
	return d
}

// Animation builds the fade described by d.
func (d BreatheData) Animation(periodUS uint32) *Fade {
	on := color.LabFromRGB8(d.OnColor)
	off := on
	if !d.OffColor.IsBlack() {
		off = color.LabFromRGB8(d.OffColor)
	}
	off.L = 0

	offFade := d.OffFadeMS
	if offFade == 0 {
		offFade = d.OnFadeMS
	}

	f := NewFade(periodUS)
	f.SetTargets([]color.Lab{on, off})
	f.SetFadeTime(0, msToUS(d.OnFadeMS))
	f.SetHoldTime(0, msToUS(d.OnMS))
	f.SetFadeTime(1, msToUS(offFade))
	f.SetHoldTime(1, msToUS(d.OffMS))
	return f
}

// Animation builds the fade described by d. Counts above MaxFadeTargets are
// clamped; a count of 0 leaves the two black default targets.
func (d FadeData) Animation(periodUS uint32) *Fade {
	count := min(int(d.ColorCount), MaxFadeTargets)

	f := NewFade(periodUS)
	targets := make([]color.Lab, count)
	for i := 0; i < count; i++ {
		targets[i] = color.LabFromRGB8(d.Colors[i])
		f.SetFadeTime(uint8(i), msToUS(d.FadeMS))
		f.SetHoldTime(uint8(i), msToUS(d.HoldMS))
	}
	f.SetTargets(targets)
	return f
}

func msToUS(ms uint16) uint32 {
	return 1000 * uint32(ms)
}

// NewNoneRecord returns a record that turns lamp off.
func NewNoneRecord(lamp uint8) persist.Record {
	return persist.Record{LampID: lamp, Type: uint8(AnimationNone)}
}

// NewBreatheRecord returns a breathe record for lamp.
func NewBreatheRecord(lamp uint8, d BreatheData) persist.Record {
	return persist.Record{LampID: lamp, Type: uint8(AnimationBreathe), Data: d.Encode()}
}

// NewFadeRecord returns a fade record for lamp.
func NewFadeRecord(lamp uint8, d FadeData) persist.Record {
	return persist.Record{LampID: lamp, Type: uint8(AnimationFade), Data: d.Encode()}
}

// AnimationFromRecord builds the animation a record describes. It returns
// nil for none, and false for unknown types.
func AnimationFromRecord(r persist.Record, periodUS uint32) (Animation, bool) {
	switch AnimationType(r.Type) {
	case AnimationNone:
		return nil, true
	case AnimationBreathe:
		return DecodeBreatheData(r.Data).Animation(periodUS), true
	case AnimationFade:
		return DecodeFadeData(r.Data).Animation(periodUS), true
	}
	return nil, false
}
