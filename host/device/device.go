// Package device is a typed client for the lamp controller's command
// channel.
package device

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"hidlight/color"
	"hidlight/core"
	"hidlight/debug"
	"hidlight/host/serial"
	"hidlight/persist"
	"hidlight/protocol"
)

// ErrNoResponse is returned when the device acknowledged a query without
// sending its response.
var ErrNoResponse = errors.New("device: no response")

// Config is the device's get_config response.
type Config struct {
	LampCount     int
	FramePeriodUS uint32
	Autonomous    bool
	Suspended     bool
	Version       string
}

// LampState is the get_lamp response.
type LampState struct {
	Lamp  uint8
	Value core.LampValue
	Stage uint8
	Frame uint32
}

// LampUpdate is one entry of an UpdateLamps batch.
type LampUpdate struct {
	Lamp      uint8
	Color     color.RGB8
	Intensity uint8
}

// Client sends commands to one device.
type Client struct {
	tr      *protocol.HostTransport
	timeout time.Duration
}

// New returns a client over an open port.
func New(port io.ReadWriteCloser) *Client {
	return &Client{
		tr:      protocol.NewHostTransport(port),
		timeout: protocol.DefaultTimeout,
	}
}

// Open opens the serial port at path. An empty path finds the device by its
// USB ids.
func Open(path string) (*Client, error) {
	if path == "" {
		found, err := serial.FindDevice(serial.DefaultVendorID, serial.DefaultProductID)
		if err != nil {
			return nil, err
		}
		path = found
	}
	port, err := serial.Open(serial.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return New(port), nil
}

// SetTimeout changes how long each command waits for its ACK.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Close stops the transport and closes the port.
func (c *Client) Close() error {
	return c.tr.Close()
}

// exchange sends cmd and returns the payload of the want response, if any.
// An error response from the device is returned as its sentinel error.
func (c *Client) exchange(name string, cmd uint16, args func(protocol.OutputBuffer), want uint16) ([]byte, error) {
	msgs, err := c.tr.Exchange(cmd, args, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var payload []byte
	found := false
	for _, m := range msgs {
		id, data, err := m.Command()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		switch {
		case id == protocol.CmdError:
			failed, _ := protocol.DecodeVLQUint(&data)
			code, _ := protocol.DecodeVLQUint(&data)
			if uint16(failed) == cmd {
				return nil, fmt.Errorf("%s: %w", name, protocol.CodeError(uint8(code)))
			}
		case id == want && !found:
			payload, found = data, true
		}
	}
	if want != noResponse && !found {
		return nil, fmt.Errorf("%s: %w", name, ErrNoResponse)
	}
	return payload, nil
}

// noResponse marks commands that only expect an ACK. It is never a valid
// response id.
const noResponse = 0xFFFF

func (c *Client) call(name string, cmd uint16, args func(protocol.OutputBuffer)) error {
	_, err := c.exchange(name, cmd, args, noResponse)
	return err
}

func uints(vals ...uint32) func(protocol.OutputBuffer) {
	return func(out protocol.OutputBuffer) {
		for _, v := range vals {
			protocol.EncodeVLQUint(out, v)
		}
	}
}

func boolVal(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// decoder reads consecutive VLQ values and keeps the first error.
type decoder struct {
	data []byte
	err  error
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := protocol.DecodeVLQUint(&d.data)
	d.err = err
	return v
}

func (d *decoder) i32() int32 {
	if d.err != nil {
		return 0
	}
	v, err := protocol.DecodeVLQInt(&d.data)
	d.err = err
	return v
}

func (d *decoder) blob() []byte {
	if d.err != nil {
		return nil
	}
	v, err := protocol.DecodeVLQBytes(&d.data)
	d.err = err
	return v
}

// Identify reads the command dictionary.
func (c *Client) Identify() (string, error) {
	var dict []byte
	for {
		data, err := c.exchange("identify", protocol.CmdIdentify, uints(uint32(len(dict)), 40), protocol.CmdIdentifyResponse)
		if err != nil {
			return "", err
		}
		d := decoder{data: data}
		offset := d.u32()
		chunk := d.blob()
		if d.err != nil {
			return "", fmt.Errorf("identify: %w", d.err)
		}
		if int(offset) != len(dict) {
			return "", fmt.Errorf("identify: expected offset %d, got %d", len(dict), offset)
		}
		if len(chunk) == 0 {
			return string(dict), nil
		}
		dict = append(dict, chunk...)
	}
}

// Config reads the device configuration.
func (c *Client) Config() (Config, error) {
	data, err := c.exchange("get_config", protocol.CmdGetConfig, nil, protocol.CmdConfig)
	if err != nil {
		return Config{}, err
	}
	d := decoder{data: data}
	cfg := Config{
		LampCount:     int(d.u32()),
		FramePeriodUS: d.u32(),
		Autonomous:    d.u32() != 0,
		Suspended:     d.u32() != 0,
		Version:       string(d.blob()),
	}
	if d.err != nil {
		return Config{}, fmt.Errorf("get_config: %w", d.err)
	}
	return cfg, nil
}

// SetAnimation applies an animation record to lamp, saving it as the
// lamp's default when save is set.
func (c *Client) SetAnimation(lamp uint8, typ core.AnimationType, data [persist.RecordDataSize]byte, save bool) error {
	// trailing zeros are restored by the device, which keeps the frame short
	trimmed := bytes.TrimRight(data[:], "\x00")
	return c.call("set_animation", protocol.CmdSetAnimation, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(lamp))
		protocol.EncodeVLQUint(out, uint32(typ))
		protocol.EncodeVLQUint(out, boolVal(save))
		protocol.EncodeVLQBytes(out, trimmed)
	})
}

// Breathe starts a breathe animation on lamp.
func (c *Client) Breathe(lamp uint8, d core.BreatheData, save bool) error {
	return c.SetAnimation(lamp, core.AnimationBreathe, d.Encode(), save)
}

// Fade starts a fade animation on lamp.
func (c *Client) Fade(lamp uint8, d core.FadeData, save bool) error {
	return c.SetAnimation(lamp, core.AnimationFade, d.Encode(), save)
}

// Off stops the animation of lamp and turns it off.
func (c *Client) Off(lamp uint8, save bool) error {
	return c.SetAnimation(lamp, core.AnimationNone, [persist.RecordDataSize]byte{}, save)
}

// UpdateLamp sets one lamp. The device rejects it in autonomous mode.
func (c *Client) UpdateLamp(lamp uint8, rgb color.RGB8, intensity uint8, apply bool) error {
	return c.call("update_lamp", protocol.CmdUpdateLamp,
		uints(uint32(lamp), uint32(rgb.R), uint32(rgb.G), uint32(rgb.B), uint32(intensity), boolVal(apply)))
}

// UpdateLamps sets several lamps, splitting the batch across commands as
// needed. Only the last command carries apply.
func (c *Client) UpdateLamps(updates []LampUpdate, apply bool) error {
	for len(updates) > 0 {
		n := min(len(updates), protocol.MaxUpdateEntries)
		entries := make([]byte, 0, n*protocol.UpdateEntrySize)
		for _, u := range updates[:n] {
			entries = append(entries, u.Lamp, u.Color.R, u.Color.G, u.Color.B, u.Intensity)
		}
		updates = updates[n:]

		last := len(updates) == 0
		err := c.call("update_lamps", protocol.CmdUpdateLamps, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQBytes(out, entries)
			protocol.EncodeVLQUint(out, boolVal(apply && last))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateRange sets lamps start through end to one value.
func (c *Client) UpdateRange(start, end uint8, rgb color.RGB8, intensity uint8, apply bool) error {
	return c.call("update_range", protocol.CmdUpdateRange,
		uints(uint32(start), uint32(end), uint32(rgb.R), uint32(rgb.G), uint32(rgb.B), uint32(intensity), boolVal(apply)))
}

// ApplyUpdates commits every staged lamp value.
func (c *Client) ApplyUpdates() error {
	return c.call("apply_updates", protocol.CmdApplyUpdates, nil)
}

// Lamp reads the committed value and animation cursor of lamp.
func (c *Client) Lamp(lamp uint8) (LampState, error) {
	data, err := c.exchange("get_lamp", protocol.CmdGetLamp, uints(uint32(lamp)), protocol.CmdLampState)
	if err != nil {
		return LampState{}, err
	}
	d := decoder{data: data}
	s := LampState{
		Lamp: uint8(d.u32()),
		Value: core.LampValue{
			R: uint16(d.u32()),
			G: uint16(d.u32()),
			B: uint16(d.u32()),
			I: uint8(d.u32()),
		},
		Stage: uint8(d.u32()),
		Frame: d.u32(),
	}
	if d.err != nil {
		return LampState{}, fmt.Errorf("get_lamp: %w", d.err)
	}
	return s, nil
}

// SetAutonomous switches between built-in animations and host control.
func (c *Client) SetAutonomous(on bool) error {
	return c.call("set_autonomous", protocol.CmdSetAutonomous, uints(boolVal(on)))
}

// Suspend turns every lamp off until Resume.
func (c *Client) Suspend() error {
	return c.call("suspend", protocol.CmdSuspend, nil)
}

// Resume restores the lamps after Suspend.
func (c *Client) Resume() error {
	return c.call("resume", protocol.CmdResume, nil)
}

// SaveDefault saves the current animation of lamp as its power-on default.
func (c *Client) SaveDefault(lamp uint8) error {
	return c.call("save_default", protocol.CmdSaveDefault, uints(uint32(lamp)))
}

// LoadDefaults reapplies every saved default.
func (c *Client) LoadDefaults() error {
	return c.call("load_defaults", protocol.CmdLoadDefaults, nil)
}

// Reset clears saved defaults and/or reboots into the bootloader. When
// rebooting, the device may drop off the bus before its ACK arrives.
func (c *Client) Reset(clearDefaults, bootloader bool) error {
	var flags uint32
	if clearDefaults {
		flags |= protocol.ResetClearDefaults
	}
	if bootloader {
		flags |= protocol.ResetBootloader
	}
	return c.call("reset", protocol.CmdReset, uints(flags))
}

// LampAttributes reads the static description of lamp.
func (c *Client) LampAttributes(lamp uint8) (core.LampAttributes, error) {
	if err := c.call("set_attributes_lamp", protocol.CmdSetAttributesLamp, uints(uint32(lamp))); err != nil {
		return core.LampAttributes{}, err
	}
	data, err := c.exchange("get_lamp_attributes", protocol.CmdGetLampAttributes, nil, protocol.CmdLampAttributes)
	if err != nil {
		return core.LampAttributes{}, err
	}
	d := decoder{data: data}
	a := core.LampAttributes{
		LampID:          uint8(d.u32()),
		Position:        [3]int32{d.i32(), d.i32(), d.i32()},
		UpdateLatencyUS: d.u32(),
		Purpose:         uint16(d.u32()),
		RedLevels:       uint8(d.u32()),
		GreenLevels:     uint8(d.u32()),
		BlueLevels:      uint8(d.u32()),
		IntensityLevels: uint8(d.u32()),
		Programmable:    d.u32() != 0,
		InputBinding:    uint16(d.u32()),
	}
	if d.err != nil {
		return core.LampAttributes{}, fmt.Errorf("get_lamp_attributes: %w", d.err)
	}
	return a, nil
}

// Temperature reads the board temperature in degrees Celsius.
func (c *Client) Temperature() (float64, error) {
	data, err := c.exchange("get_temperature", protocol.CmdGetTemperature, nil, protocol.CmdTemperature)
	if err != nil {
		return 0, err
	}
	d := decoder{data: data}
	centi := d.i32()
	if d.err != nil {
		return 0, fmt.Errorf("get_temperature: %w", d.err)
	}
	return float64(centi) / 100, nil
}

// LampRecord reads the animation record last applied to lamp.
func (c *Client) LampRecord(lamp uint8) (persist.Record, error) {
	data, err := c.exchange("get_lamp_record", protocol.CmdGetLampRecord, uints(uint32(lamp)), protocol.CmdLampRecord)
	if err != nil {
		return persist.Record{}, err
	}
	d := decoder{data: data}
	r := persist.Record{LampID: uint8(d.u32()), Type: uint8(d.u32())}
	params := d.blob()
	if d.err != nil {
		return persist.Record{}, fmt.Errorf("get_lamp_record: %w", d.err)
	}
	if len(params) > persist.RecordDataSize {
		return persist.Record{}, fmt.Errorf("get_lamp_record: %d byte data block", len(params))
	}
	copy(r.Data[:], params)
	return r, nil
}

// Events reads the device's event ring, oldest first. Events recorded while
// reading may shift the ring, so the result is a best effort snapshot.
func (c *Client) Events() ([]debug.Event, error) {
	var events []debug.Event
	for i := 0; ; i++ {
		data, err := c.exchange("get_event", protocol.CmdGetEvent, uints(uint32(i)), protocol.CmdEvent)
		if err != nil {
			return nil, err
		}
		d := decoder{data: data}
		d.u32() // index
		count := int(d.u32())
		evt := debug.Event{
			Type:   uint8(d.u32()),
			Lamp:   uint8(d.u32()),
			Clock:  d.u32(),
			Value1: d.u32(),
			Value2: d.u32(),
		}
		if d.err != nil {
			return nil, fmt.Errorf("get_event: %w", d.err)
		}
		if i >= count {
			return events, nil
		}
		events = append(events, evt)
	}
}

// DumpSettings asks the device to write a hex dump of its settings region
// to its debug UART. It returns the number of valid records and slots.
func (c *Client) DumpSettings() (records, slots int, err error) {
	data, err := c.exchange("dump_settings", protocol.CmdDumpSettings, nil, protocol.CmdSettingsInfo)
	if err != nil {
		return 0, 0, err
	}
	d := decoder{data: data}
	records, slots = int(d.u32()), int(d.u32())
	if d.err != nil {
		return 0, 0, fmt.Errorf("dump_settings: %w", d.err)
	}
	return records, slots, nil
}
