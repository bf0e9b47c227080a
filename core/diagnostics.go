package core

import (
	"bytes"
	"io"

	"hidlight/debug"
	"hidlight/persist"
	"hidlight/protocol"
)

// SettingsDumper exposes the raw settings log. *persist.Store implements it.
type SettingsDumper interface {
	Geometry() persist.Geometry
	Records() ([]persist.Record, error)
	Dump(w io.Writer) error
}

// EnableDiagnostics registers the debugging commands: get_lamp_record,
// get_event and, when store is not nil, dump_settings.
func (lc *LampCommands) EnableDiagnostics(store SettingsDumper) {
	lc.reg.Register(protocol.CmdGetLampRecord, "get_lamp_record", "lamp=%c", lc.handleGetLampRecord)
	lc.reg.RegisterResponse(protocol.CmdLampRecord, "lamp_record", "lamp=%c type=%c data=%*s")

	lc.reg.Register(protocol.CmdGetEvent, "get_event", "index=%c", lc.handleGetEvent)
	lc.reg.RegisterResponse(protocol.CmdEvent, "event", "index=%c count=%c type=%c lamp=%c clock=%u v1=%u v2=%u")

	if store == nil {
		return
	}
	lc.reg.Register(protocol.CmdDumpSettings, "dump_settings", "", func(data *[]byte) error {
		return lc.dumpSettings(store)
	})
	lc.reg.RegisterResponse(protocol.CmdSettingsInfo, "settings_info", "records=%c slots=%c")
}

// handleGetLampRecord reports the record last applied to a lamp. Trailing
// zero bytes of the data block are dropped, as set_animation allows.
func (lc *LampCommands) handleGetLampRecord(data *[]byte) error {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	lamp, err := lc.lampID(v)
	if err != nil {
		return err
	}

	r := lc.ctrl.Record(lamp)
	params := bytes.TrimRight(r.Data[:], "\x00")
	lc.out.SendCommand(protocol.CmdLampRecord, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(r.LampID))
		protocol.EncodeVLQUint(output, uint32(r.Type))
		protocol.EncodeVLQBytes(output, params)
	})
	return nil
}

// handleGetEvent returns one entry of the event ring, oldest first, with the
// number of captured events. An index past the end answers with type 0.
func (lc *LampCommands) handleGetEvent(data *[]byte) error {
	index, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	events := debug.Events()
	var evt debug.Event
	if index < uint32(len(events)) {
		evt = events[index]
	}
	lc.out.SendCommand(protocol.CmdEvent, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, index)
		protocol.EncodeVLQUint(output, uint32(len(events)))
		protocol.EncodeVLQUint(output, uint32(evt.Type))
		protocol.EncodeVLQUint(output, uint32(evt.Lamp))
		protocol.EncodeVLQUint(output, evt.Clock)
		protocol.EncodeVLQUint(output, evt.Value1)
		protocol.EncodeVLQUint(output, evt.Value2)
	})
	return nil
}

// dumpSettings writes a hex dump of the settings region to the debug output
// and answers with the number of valid records.
func (lc *LampCommands) dumpSettings(store SettingsDumper) error {
	records, err := store.Records()
	if err != nil {
		return storageError(err)
	}
	w := debug.LineWriter()
	io.WriteString(w, "persist: "+debug.Itoa(len(records))+" records\n")
	if err := store.Dump(w); err != nil {
		return storageError(err)
	}

	slots := store.Geometry().SlotCount()
	lc.out.SendCommand(protocol.CmdSettingsInfo, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(len(records)))
		protocol.EncodeVLQUint(output, uint32(slots))
	})
	return nil
}
