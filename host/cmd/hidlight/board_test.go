package main

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"hidlight/config"
)

const stripBoard = `
lamp_count: 8
driver: pio-ws2812
strip_pin: gpio22
lamps:
  - position_um: [0, 0, 0]
    purpose: [status]
debug:
  enabled: true
  uart: 1
  tx: gpio4
  rx: gpio5
`

func TestConvertBoardYAML(t *testing.T) {
	out, err := convertBoard([]byte(stripBoard))
	require.NoError(t, err)

	cfg, err := config.LoadConfig(out)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, 8, cfg.LampCount)
	require.Equal(t, config.DriverPIOWS2812, cfg.Driver)
	require.Equal(t, "gpio22", cfg.StripPin)
	require.Equal(t, []string{"status"}, cfg.Lamps[0].Purpose)
	require.True(t, cfg.Debug.Enabled)
	require.Equal(t, uint32(115200), cfg.Debug.Baud)

	// defaults are written out
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	require.EqualValues(t, 120, doc["frame_rate_hz"])
	require.Contains(t, doc, "flash")
}

func TestConvertBoardAcceptsJSON(t *testing.T) {
	out, err := convertBoard([]byte(`{"lamp_count": 2, "driver": "ws2812", "strip_pin": "gpio2"}`))
	require.NoError(t, err)

	cfg, err := config.LoadConfig(out)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.LampCount)
}

func TestConvertBoardRejects(t *testing.T) {
	_, err := convertBoard([]byte("lamp_count: [1, 2"))
	require.Error(t, err)

	_, err = convertBoard([]byte("driver: ws2812\nstrip_pin: pin99\n"))
	require.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
}
