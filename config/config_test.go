package config

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hidlight/core"
	"hidlight/persist"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig([]byte(`{"driver": "ws2812", "strip_pin": "gpio22"}`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.LampCount != 4 || config.FrameRateHz != 120 {
		t.Errorf("Expected 4 lamps at 120 Hz, got %d at %d", config.LampCount, config.FrameRateHz)
	}
	if diff := cmp.Diff(persist.DefaultGeometry, config.Geometry()); diff != "" {
		t.Errorf("Geometry mismatch (-want +got):\n%s", diff)
	}
	if config.Debug.Baud != 115200 {
		t.Errorf("Expected default baud, got %d", config.Debug.Baud)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	if _, err := LoadConfig([]byte(`{"lamp_count": "four"}`)); err == nil {
		t.Error("Expected error for mistyped field")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}

	cc := config.ControllerConfig()
	if cc.LampCount != 4 || cc.FramePeriodUS != 8333 {
		t.Errorf("Unexpected controller config %+v", cc)
	}
	if cc.Placements[2].Position[0] != 40000 {
		t.Errorf("Expected lamp 2 at x=40000, got %d", cc.Placements[2].Position[0])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*DeviceConfig)
	}{
		{"no lamps", func(c *DeviceConfig) { c.LampCount = 0 }},
		{"too many lamps", func(c *DeviceConfig) { c.LampCount = 300 }},
		{"frame rate", func(c *DeviceConfig) { c.FrameRateHz = 5000 }},
		{"unknown driver", func(c *DeviceConfig) { c.Driver = "dmx" }},
		{"missing pwm lamps", func(c *DeviceConfig) { c.LampCount = 5 }},
		{"bad pin", func(c *DeviceConfig) { c.Lamps[1].Green = "pa3" }},
		{"strip without pin", func(c *DeviceConfig) { c.Driver = DriverPIOWS2812 }},
		{"unknown purpose", func(c *DeviceConfig) { c.Lamps[0].Purpose = []string{"disco"} }},
		{"slot too small", func(c *DeviceConfig) { c.Flash.SlotsPerPage = 8 }},
		{"fewer slots than lamps", func(c *DeviceConfig) {
			c.Driver = DriverWS2812
			c.StripPin = "gpio2"
			c.LampCount = 100
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestPurposeMask(t *testing.T) {
	config := DefaultConfig()
	config.Lamps[0].Purpose = []string{"Accent", "status"}

	cc := config.ControllerConfig()
	if want := core.PurposeAccent | core.PurposeStatus; cc.Placements[0].Purpose != want {
		t.Errorf("Expected purpose 0x%x, got 0x%x", want, cc.Placements[0].Purpose)
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		name string
		want uint8
		ok   bool
	}{
		{"gpio0", 0, true},
		{"GPIO25", 25, true},
		{"gpio30", 0, false},
		{"gpio", 0, false},
		{"led", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePin(tt.name)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParsePin(%q) = %d, %v", tt.name, got, err)
		}
	}
}
