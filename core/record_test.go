package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"hidlight/color"
	"hidlight/persist"
)

func TestBreatheDataLayout(t *testing.T) {
	d := BreatheData{
		OnColor:   color.RGB8{1, 2, 3},
		OffColor:  color.RGB8{4, 5, 6},
		OnFadeMS:  0x0102,
		OnMS:      0x0304,
		OffFadeMS: 0x0506,
		OffMS:     0x0708,
	}
	data := d.Encode()

	want := []byte{1, 2, 3, 4, 5, 6, 0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 0x08, 0x07}
	if diff := cmp.Diff(want, data[:len(want)]); diff != "" {
		t.Errorf("Breathe layout mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(d, DecodeBreatheData(data)); diff != "" {
		t.Errorf("Breathe decode mismatch (-want +got):\n%s", diff)
	}
}

func TestFadeDataLayout(t *testing.T) {
	d := FadeData{ColorCount: 2, FadeMS: 500, HoldMS: 250}
	d.Colors[0] = color.RGB8{10, 20, 30}
	d.Colors[1] = color.RGB8{40, 50, 60}
	data := d.Encode()

	if data[0] != 2 || data[1] != 10 || data[4] != 40 {
		t.Errorf("Unexpected fade header % x", data[:7])
	}
	if data[25] != 0xF4 || data[26] != 0x01 || data[27] != 0xFA || data[28] != 0x00 {
		t.Errorf("Unexpected fade times % x", data[25:29])
	}
	if diff := cmp.Diff(d, DecodeFadeData(data)); diff != "" {
		t.Errorf("Fade decode mismatch (-want +got):\n%s", diff)
	}
}

func TestBreatheAnimation(t *testing.T) {
	on := color.RGB8{0, 128, 255}

	f := BreatheData{OnColor: on, OnFadeMS: 1000, OnMS: 200, OffMS: 500}.Animation(testPeriod)
	if f.TargetCount() != 2 {
		t.Fatalf("Expected 2 targets, got %d", f.TargetCount())
	}
	wantOff := color.LabFromRGB8(on)
	wantOff.L = 0
	if f.Target(0) != color.LabFromRGB8(on) || f.Target(1) != wantOff {
		t.Errorf("Expected black off color to reuse the on chroma at zero lightness")
	}
	if f.FadeFrames(1) != f.FadeFrames(0) {
		t.Errorf("Expected off fade to default to on fade, got %d and %d", f.FadeFrames(1), f.FadeFrames(0))
	}
	if f.HoldFrames(0) != 20 || f.HoldFrames(1) != 50 {
		t.Errorf("Unexpected hold frames %d and %d", f.HoldFrames(0), f.HoldFrames(1))
	}

	off := color.RGB8{255, 0, 0}
	f = BreatheData{OnColor: on, OffColor: off, OnFadeMS: 1000, OffFadeMS: 300}.Animation(testPeriod)
	wantOff = color.LabFromRGB8(off)
	wantOff.L = 0
	if f.Target(1) != wantOff {
		t.Errorf("Expected off target from off color with zero lightness")
	}
	if f.FadeFrames(1) != 30 {
		t.Errorf("Expected 30 frame off fade, got %d", f.FadeFrames(1))
	}
}

func TestFadeAnimationClampsCount(t *testing.T) {
	d := FadeData{ColorCount: 12, FadeMS: 100, HoldMS: 50}
	for i := range d.Colors {
		d.Colors[i] = color.RGB8{uint8(i * 30), 0, 0}
	}

	f := d.Animation(testPeriod)
	if f.TargetCount() != MaxFadeTargets {
		t.Fatalf("Expected %d targets, got %d", MaxFadeTargets, f.TargetCount())
	}
	for i := 0; i < MaxFadeTargets; i++ {
		if f.FadeFrames(i) != 10 || f.HoldFrames(i) != 5 {
			t.Errorf("Target %d: expected 10/5 frames, got %d/%d", i, f.FadeFrames(i), f.HoldFrames(i))
		}
	}

	empty := FadeData{}.Animation(testPeriod)
	if empty.TargetCount() != 2 {
		t.Errorf("Expected an empty fade to keep 2 default targets, got %d", empty.TargetCount())
	}
}

func TestAnimationFromRecord(t *testing.T) {
	if a, ok := AnimationFromRecord(NewNoneRecord(0), testPeriod); !ok || a != nil {
		t.Errorf("Expected none to build no animation, got %v ok=%v", a, ok)
	}
	if a, ok := AnimationFromRecord(NewBreatheRecord(0, BreatheData{OnFadeMS: 100}), testPeriod); !ok || a == nil {
		t.Error("Expected a breathe animation")
	}
	if a, ok := AnimationFromRecord(NewFadeRecord(0, FadeData{ColorCount: 1}), testPeriod); !ok || a == nil {
		t.Error("Expected a fade animation")
	}
	if _, ok := AnimationFromRecord(persist.Record{Type: 7}, testPeriod); ok {
		t.Error("Expected unknown type to be rejected")
	}
}
