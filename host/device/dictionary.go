package device

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"hidlight/protocol"
)

// KnownCommands maps the commands every firmware build registers to the id
// the client uses. get_temperature and dump_settings depend on the board
// and are left out.
var KnownCommands = map[string]uint16{
	"identify":            protocol.CmdIdentify,
	"get_config":          protocol.CmdGetConfig,
	"set_animation":       protocol.CmdSetAnimation,
	"update_lamp":         protocol.CmdUpdateLamp,
	"update_lamps":        protocol.CmdUpdateLamps,
	"update_range":        protocol.CmdUpdateRange,
	"apply_updates":       protocol.CmdApplyUpdates,
	"get_lamp":            protocol.CmdGetLamp,
	"set_autonomous":      protocol.CmdSetAutonomous,
	"suspend":             protocol.CmdSuspend,
	"resume":              protocol.CmdResume,
	"save_default":        protocol.CmdSaveDefault,
	"load_defaults":       protocol.CmdLoadDefaults,
	"reset":               protocol.CmdReset,
	"set_attributes_lamp": protocol.CmdSetAttributesLamp,
	"get_lamp_attributes": protocol.CmdGetLampAttributes,
	"get_lamp_record":     protocol.CmdGetLampRecord,
	"get_event":           protocol.CmdGetEvent,
}

// Entry is one command or response in the device dictionary.
type Entry struct {
	ID     uint16
	Name   string
	Format string
}

// Dictionary is the parsed identify text, one "id name format" line per
// entry.
type Dictionary struct {
	Entries []Entry // sorted by ID
	byName  map[string]int
}

// ParseDictionary parses the text returned by Identify.
func ParseDictionary(text string) (*Dictionary, error) {
	d := &Dictionary{byName: make(map[string]int)}
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("dictionary line %d: expected id and name, got %q", n+1, line)
		}
		id, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("dictionary line %d: bad id: %w", n+1, err)
		}
		e := Entry{ID: uint16(id), Name: fields[1]}
		if len(fields) == 3 {
			e.Format = fields[2]
		}
		d.Entries = append(d.Entries, e)
	}
	sort.Slice(d.Entries, func(i, j int) bool { return d.Entries[i].ID < d.Entries[j].ID })
	for i, e := range d.Entries {
		d.byName[e.Name] = i
	}
	return d, nil
}

// Lookup returns the entry called name.
func (d *Dictionary) Lookup(name string) (Entry, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Entry{}, false
	}
	return d.Entries[i], true
}

// Check reports the first entry in want whose ID differs from the device's,
// so a host built against another firmware fails early.
func (d *Dictionary) Check(want map[string]uint16) error {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e, ok := d.Lookup(name)
		if !ok {
			return fmt.Errorf("device has no %s command", name)
		}
		if e.ID != want[name] {
			return fmt.Errorf("device uses id %d for %s, expected %d", e.ID, name, want[name])
		}
	}
	return nil
}

// Dictionary reads and parses the device dictionary.
func (c *Client) Dictionary() (*Dictionary, error) {
	text, err := c.Identify()
	if err != nil {
		return nil, err
	}
	return ParseDictionary(text)
}
