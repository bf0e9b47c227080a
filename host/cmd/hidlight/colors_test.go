package main

import (
	"testing"

	"hidlight/color"
	"hidlight/core"
	"hidlight/persist"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGB8
		ok   bool
	}{
		{"#ff8000", color.RGB8{255, 128, 0}, true},
		{"00FF7f", color.RGB8{0, 255, 127}, true},
		{"#f80", color.RGB8{255, 136, 0}, true},
		{"Orange", color.RGB8{255, 165, 0}, true},
		{"#12345", color.RGB8{}, false},
		{"#gg0000", color.RGB8{}, false},
		{"chartreuse-ish", color.RGB8{}, false},
	}

	for _, tt := range tests {
		got, err := parseColor(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseColor(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("parseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestColorListFlag(t *testing.T) {
	var l colorList
	for _, s := range []string{"red", "#0000ff"} {
		if err := l.Set(s); err != nil {
			t.Fatalf("Set(%q) failed: %v", s, err)
		}
	}
	if got := l.String(); got != "#ff0000,#0000ff" {
		t.Errorf("Unexpected String() %q", got)
	}
}

func TestSecondsToMS(t *testing.T) {
	if ms, err := secondsToMS("on-fade", 1.25); err != nil || ms != 1250 {
		t.Errorf("Expected 1250, got %d (%v)", ms, err)
	}
	if ms, err := secondsToMS("on-fade", 65.535); err != nil || ms != 65535 {
		t.Errorf("Expected 65535, got %d (%v)", ms, err)
	}
	if _, err := secondsToMS("on-fade", 70); err == nil {
		t.Error("Expected error for 70 seconds")
	}
	if _, err := secondsToMS("on-fade", -1); err == nil {
		t.Error("Expected error for negative time")
	}
}

func TestDescribeRecord(t *testing.T) {
	breathe := core.NewBreatheRecord(0, core.BreatheData{OnColor: color.RGB8{255, 128, 0}, OnFadeMS: 500, OffMS: 250})
	fade := core.NewFadeRecord(1, core.FadeData{
		ColorCount: 2,
		Colors:     [core.MaxFadeTargets]color.RGB8{{255, 0, 0}, {0, 0, 255}},
		FadeMS:     100,
		HoldMS:     20,
	})

	tests := []struct {
		r    persist.Record
		want string
	}{
		{core.NewNoneRecord(2), "none"},
		{breathe, "breathe on=#ff8000 off=#000000 fade-in=500ms on=0ms fade-out=0ms off=250ms"},
		{fade, "fade colors=#ff0000,#0000ff fade=100ms hold=20ms"},
		{persist.Record{Type: 7}, "unknown type 7"},
	}
	for _, tt := range tests {
		if got := describeRecord(tt.r); got != tt.want {
			t.Errorf("describeRecord(type %d) = %q, want %q", tt.r.Type, got, tt.want)
		}
	}
}
