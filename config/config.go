// Package config describes the lamp board: how many lamps it has, how they
// are wired and where the settings region lives. Boards ship a JSON file
// that LoadConfig parses; missing values take the reference board defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hidlight/core"
	"hidlight/persist"
)

// Lamp driver kinds.
const (
	DriverPWM       = "pwm"        // one PWM channel per color per lamp
	DriverWS2812    = "ws2812"     // one strip pixel per lamp, bit-banged
	DriverPIOWS2812 = "pio-ws2812" // one strip pixel per lamp, driven by PIO
)

// ErrInvalidConfig is wrapped by every Validate error.
var ErrInvalidConfig = errors.New("config: invalid device configuration")

// DeviceConfig is the board description.
type DeviceConfig struct {
	LampCount       int          `json:"lamp_count"`
	FrameRateHz     int          `json:"frame_rate_hz"`
	UpdateLatencyUS uint32       `json:"update_latency_us"`
	Driver          string       `json:"driver"`
	StripPin        string       `json:"strip_pin,omitempty"`
	PWMFrequencyHz  uint32       `json:"pwm_frequency_hz,omitempty"`
	Lamps           []LampConfig `json:"lamps,omitempty"`
	Flash           FlashConfig  `json:"flash"`
	Debug           DebugConfig  `json:"debug"`
}

// LampConfig wires one lamp. The pins are only used by the pwm driver.
type LampConfig struct {
	Red        string   `json:"red,omitempty"`
	Green      string   `json:"green,omitempty"`
	Blue       string   `json:"blue,omitempty"`
	PositionUM [3]int32 `json:"position_um"`
	Purpose    []string `json:"purpose,omitempty"`
}

// FlashConfig is the layout of the settings region.
type FlashConfig struct {
	PageSize     int `json:"page_size"`
	SectorSize   int `json:"sector_size"`
	SlotsPerPage int `json:"slots_per_page"`
}

// DebugConfig selects the UART that carries debug output.
type DebugConfig struct {
	Enabled bool   `json:"enabled"`
	UART    int    `json:"uart"`
	TX      string `json:"tx"`
	RX      string `json:"rx"`
	Baud    uint32 `json:"baud"`
}

var purposeBits = map[string]uint16{
	"control":      core.PurposeControl,
	"accent":       core.PurposeAccent,
	"branding":     core.PurposeBranding,
	"status":       core.PurposeStatus,
	"illumination": core.PurposeIllumination,
	"presentation": core.PurposePresentation,
}

// LoadConfig parses a JSON board description and fills in defaults.
func LoadConfig(jsonData []byte) (*DeviceConfig, error) {
	var config DeviceConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	return &config, nil
}

// applyDefaults fills in missing configuration values with the reference
// board's values.
func applyDefaults(config *DeviceConfig) {
	if config.LampCount == 0 {
		config.LampCount = core.DefaultLampCount
	}
	if config.FrameRateHz == 0 {
		config.FrameRateHz = core.DefaultFrameRate
	}
	if config.Driver == "" {
		config.Driver = DriverPWM
	}
	if config.PWMFrequencyHz == 0 {
		config.PWMFrequencyHz = 1000
	}

	if config.Flash.PageSize == 0 {
		config.Flash.PageSize = persist.DefaultGeometry.PageSize
	}
	if config.Flash.SectorSize == 0 {
		config.Flash.SectorSize = persist.DefaultGeometry.RegionSize
	}
	if config.Flash.SlotsPerPage == 0 {
		config.Flash.SlotsPerPage = persist.DefaultGeometry.SlotsPerPage
	}

	if config.Debug.Baud == 0 {
		config.Debug.Baud = 115200
	}
	if config.Debug.TX == "" {
		config.Debug.TX = "gpio16"
	}
	if config.Debug.RX == "" {
		config.Debug.RX = "gpio17"
	}
}

// DefaultConfig returns the reference board: four RGB lamps on PWM pins
// 0 to 11.
func DefaultConfig() *DeviceConfig {
	config := &DeviceConfig{
		Driver: DriverPWM,
		Lamps: []LampConfig{
			{Red: "gpio0", Green: "gpio1", Blue: "gpio2", PositionUM: [3]int32{0, 0, 0}},
			{Red: "gpio3", Green: "gpio4", Blue: "gpio5", PositionUM: [3]int32{20000, 0, 0}},
			{Red: "gpio6", Green: "gpio7", Blue: "gpio8", PositionUM: [3]int32{40000, 0, 0}},
			{Red: "gpio9", Green: "gpio10", Blue: "gpio11", PositionUM: [3]int32{60000, 0, 0}},
		},
	}
	applyDefaults(config)
	return config
}

// Validate checks that the board can be driven and its settings region can
// hold one record per lamp.
func (c *DeviceConfig) Validate() error {
	if c.LampCount < 1 || c.LampCount > core.MaxLamps {
		return fmt.Errorf("%w: lamp_count %d not in 1..%d", ErrInvalidConfig, c.LampCount, core.MaxLamps)
	}
	if c.FrameRateHz < 1 || c.FrameRateHz > 1000 {
		return fmt.Errorf("%w: frame_rate_hz %d not in 1..1000", ErrInvalidConfig, c.FrameRateHz)
	}

	switch c.Driver {
	case DriverPWM:
		if len(c.Lamps) < c.LampCount {
			return fmt.Errorf("%w: pwm driver needs pins for %d lamps, have %d", ErrInvalidConfig, c.LampCount, len(c.Lamps))
		}
		for i, lamp := range c.Lamps[:c.LampCount] {
			for _, pin := range []string{lamp.Red, lamp.Green, lamp.Blue} {
				if _, err := ParsePin(pin); err != nil {
					return fmt.Errorf("%w: lamp %d: %v", ErrInvalidConfig, i, err)
				}
			}
		}
	case DriverWS2812, DriverPIOWS2812:
		if _, err := ParsePin(c.StripPin); err != nil {
			return fmt.Errorf("%w: strip_pin: %v", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, c.Driver)
	}

	for i, lamp := range c.Lamps {
		if _, err := purposeMask(lamp.Purpose); err != nil {
			return fmt.Errorf("%w: lamp %d: %v", ErrInvalidConfig, i, err)
		}
	}

	geo := c.Geometry()
	if err := geo.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if geo.SlotCount() < c.LampCount {
		return fmt.Errorf("%w: %d slots cannot hold a record for each of %d lamps", ErrInvalidConfig, geo.SlotCount(), c.LampCount)
	}
	return nil
}

// Geometry returns the settings region layout.
func (c *DeviceConfig) Geometry() persist.Geometry {
	return persist.Geometry{
		PageSize:     c.Flash.PageSize,
		RegionSize:   c.Flash.SectorSize,
		SlotsPerPage: c.Flash.SlotsPerPage,
	}
}

// ControllerConfig returns the controller sizing for this board. Call
// Validate first; unknown purposes are dropped.
func (c *DeviceConfig) ControllerConfig() core.ControllerConfig {
	placements := make([]core.LampPlacement, len(c.Lamps))
	for i, lamp := range c.Lamps {
		mask, _ := purposeMask(lamp.Purpose)
		placements[i] = core.LampPlacement{Position: lamp.PositionUM, Purpose: mask}
	}
	return core.ControllerConfig{
		LampCount:       c.LampCount,
		FramePeriodUS:   core.FramePeriodUS(uint32(c.FrameRateHz)),
		UpdateLatencyUS: c.UpdateLatencyUS,
		Placements:      placements,
	}
}

func purposeMask(names []string) (uint16, error) {
	var mask uint16
	for _, name := range names {
		bit, ok := purposeBits[strings.ToLower(name)]
		if !ok {
			return mask, fmt.Errorf("unknown purpose %q", name)
		}
		mask |= bit
	}
	return mask, nil
}

// ParsePin returns the GPIO number of a pin name such as "gpio12".
func ParsePin(name string) (uint8, error) {
	num, ok := strings.CutPrefix(strings.ToLower(name), "gpio")
	if !ok {
		return 0, fmt.Errorf("pin %q: expected gpioN", name)
	}
	n, err := strconv.ParseUint(num, 10, 8)
	if err != nil || n > 29 {
		return 0, fmt.Errorf("pin %q: no such GPIO", name)
	}
	return uint8(n), nil
}
