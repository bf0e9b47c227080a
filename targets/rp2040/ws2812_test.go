//go:build rp2040

package main

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"hidlight/core"
	"hidlight/debug"
)

type failingStrip struct {
	writes int
}

func (f *failingStrip) WriteColors(buf []color.RGBA) error {
	f.writes++
	return errors.New("strip not responding")
}

func TestStripFlushLogsWriteError(t *testing.T) {
	var lines []string
	debug.SetWriter(func(s string) { lines = append(lines, s) })
	debug.SetEnabled(true)
	defer debug.SetWriter(nil)
	defer debug.SetEnabled(false)

	strip := &failingStrip{}
	d := &StripDriver{dev: strip, pixels: make([]color.RGBA, 2)}
	d.SetLamp(1, core.LampFromLevels(255, 0, 0, 1))
	d.Flush()

	if strip.writes != 1 {
		t.Fatalf("Expected one strip refresh, got %d", strip.writes)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "strip not responding") {
		t.Errorf("Expected the write error to be logged, got %q", lines)
	}

	// Nothing changed, so there is no second refresh.
	d.Flush()
	if strip.writes != 1 {
		t.Errorf("Expected a clean driver not to refresh, got %d writes", strip.writes)
	}
}
