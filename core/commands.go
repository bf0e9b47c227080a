package core

import (
	"errors"

	"hidlight/persist"
	"hidlight/protocol"
)

// identifyChunkMax bounds one identify_response so it fits in a frame.
const identifyChunkMax = 40

// LampCommands binds the command surface to a Controller. It validates lamp
// ids and levels and enforces the autonomous-mode rule before calling into
// the controller.
type LampCommands struct {
	ctrl *Controller
	reg  *CommandRegistry
	out  Responder

	bootloader func()
}

// RegisterLampCommands registers every command and response in reg.
// Responses are sent through out.
func RegisterLampCommands(reg *CommandRegistry, ctrl *Controller, out Responder) *LampCommands {
	lc := &LampCommands{ctrl: ctrl, reg: reg, out: out}

	reg.RegisterResponse(protocol.CmdIdentifyResponse, "identify_response", "offset=%u data=%*s")
	reg.Register(protocol.CmdIdentify, "identify", "offset=%u count=%c", lc.handleIdentify)
	reg.Register(protocol.CmdGetConfig, "get_config", "", lc.handleGetConfig)
	reg.RegisterResponse(protocol.CmdConfig, "config", "lamps=%c frame_us=%u autonomous=%c suspended=%c version=%*s")

	reg.Register(protocol.CmdSetAnimation, "set_animation", "lamp=%c type=%c save=%c data=%*s", lc.handleSetAnimation)
	reg.Register(protocol.CmdUpdateLamp, "update_lamp", "lamp=%c r=%c g=%c b=%c i=%c apply=%c", lc.handleUpdateLamp)
	reg.Register(protocol.CmdUpdateLamps, "update_lamps", "entries=%*s apply=%c", lc.handleUpdateLamps)
	reg.Register(protocol.CmdUpdateRange, "update_range", "start=%c end=%c r=%c g=%c b=%c i=%c apply=%c", lc.handleUpdateRange)
	reg.Register(protocol.CmdApplyUpdates, "apply_updates", "", lc.handleApplyUpdates)
	reg.Register(protocol.CmdGetLamp, "get_lamp", "lamp=%c", lc.handleGetLamp)
	reg.RegisterResponse(protocol.CmdLampState, "lamp_state", "lamp=%c r=%hu g=%hu b=%hu i=%c stage=%c frame=%u")

	reg.Register(protocol.CmdSetAutonomous, "set_autonomous", "enable=%c", lc.handleSetAutonomous)
	reg.Register(protocol.CmdSuspend, "suspend", "", lc.handleSuspend)
	reg.Register(protocol.CmdResume, "resume", "", lc.handleResume)

	reg.Register(protocol.CmdSaveDefault, "save_default", "lamp=%c", lc.handleSaveDefault)
	reg.Register(protocol.CmdLoadDefaults, "load_defaults", "", lc.handleLoadDefaults)
	reg.Register(protocol.CmdReset, "reset", "flags=%c", lc.handleReset)

	reg.Register(protocol.CmdSetAttributesLamp, "set_attributes_lamp", "lamp=%c", lc.handleSetAttributesLamp)
	reg.Register(protocol.CmdGetLampAttributes, "get_lamp_attributes", "", lc.handleGetLampAttributes)
	reg.RegisterResponse(protocol.CmdLampAttributes, "lamp_attributes",
		"lamp=%c x=%i y=%i z=%i latency=%u purpose=%hu r=%c g=%c b=%c i=%c programmable=%c binding=%hu")

	reg.RegisterResponse(protocol.CmdError, "error", "cmd=%u code=%c")

	return lc
}

// SetBootloaderHandler sets the function run for the bootloader reset flag.
// It normally does not return.
func (lc *LampCommands) SetBootloaderHandler(fn func()) {
	lc.bootloader = fn
}

// decodeArgs decodes len(args) unsigned VLQ values.
func decodeArgs(data *[]byte, args []uint32) error {
	for i := range args {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		args[i] = v
	}
	return nil
}

func (lc *LampCommands) lampID(v uint32) (uint8, error) {
	if v >= uint32(lc.ctrl.LampCount()) {
		return 0, protocol.ErrInvalidLamp
	}
	return uint8(v), nil
}

func levels(r, g, b, i uint32) (LampValue, error) {
	if r > 0xFF || g > 0xFF || b > 0xFF || i > 0xFF {
		return LampValue{}, protocol.ErrInvalidArgument
	}
	return LampFromLevels(uint8(r), uint8(g), uint8(b), uint8(i)), nil
}

func storageError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(protocol.ErrStorage, err)
}

func boolArg(v uint32) bool {
	return v != 0
}

func boolVal(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// handleIdentify returns a chunk of the command dictionary.
func (lc *LampCommands) handleIdentify(data *[]byte) error {
	var args [2]uint32
	if err := decodeArgs(data, args[:]); err != nil {
		return err
	}
	offset, count := args[0], min(args[1], identifyChunkMax)

	dict := lc.reg.GetDictionary()
	var chunk []byte
	if offset < uint32(len(dict)) {
		end := min(offset+count, uint32(len(dict)))
		chunk = []byte(dict[offset:end])
	}

	lc.out.SendCommand(protocol.CmdIdentifyResponse, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func (lc *LampCommands) handleGetConfig(data *[]byte) error {
	lc.out.SendCommand(protocol.CmdConfig, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(lc.ctrl.LampCount()))
		protocol.EncodeVLQUint(output, lc.ctrl.FramePeriodUS())
		protocol.EncodeVLQUint(output, boolVal(lc.ctrl.Autonomous()))
		protocol.EncodeVLQUint(output, boolVal(lc.ctrl.Suspended()))
		protocol.EncodeVLQString(output, protocol.Version)
	})
	return nil
}

// handleSetAnimation applies an animation record and optionally saves it as
// the lamp's default. Trailing zero bytes of the data block may be omitted.
func (lc *LampCommands) handleSetAnimation(data *[]byte) error {
	var args [3]uint32
	if err := decodeArgs(data, args[:]); err != nil {
		return err
	}
	params, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}

	lamp, err := lc.lampID(args[0])
	if err != nil {
		return err
	}
	if args[1] > uint32(AnimationFade) || len(params) > persist.RecordDataSize {
		return protocol.ErrInvalidArgument
	}

	r := persist.Record{LampID: lamp, Type: uint8(args[1])}
	copy(r.Data[:], params)
	lc.ctrl.ApplyRecord(r)

	if boolArg(args[2]) {
		return storageError(lc.ctrl.SaveDefault(lamp))
	}
	return nil
}

func (lc *LampCommands) handleUpdateLamp(data *[]byte) error {
	var args [6]uint32
	if err := decodeArgs(data, args[:]); err != nil {
		return err
	}
	if lc.ctrl.Autonomous() {
		return protocol.ErrAutonomous
	}
	lamp, err := lc.lampID(args[0])
	if err != nil {
		return err
	}
	v, err := levels(args[1], args[2], args[3], args[4])
	if err != nil {
		return err
	}
	lc.ctrl.UpdateLamp(lamp, v, boolArg(args[5]))
	return nil
}

// handleUpdateLamps stages a batch of lamp, r, g, b, i entries. The whole
// batch is rejected if any lamp id is out of range.
func (lc *LampCommands) handleUpdateLamps(data *[]byte) error {
	entries, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}
	apply, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if lc.ctrl.Autonomous() {
		return protocol.ErrAutonomous
	}
	if len(entries)%protocol.UpdateEntrySize != 0 || len(entries)/protocol.UpdateEntrySize > protocol.MaxUpdateEntries {
		return protocol.ErrInvalidArgument
	}

	n := len(entries) / protocol.UpdateEntrySize
	ids := make([]uint8, n)
	values := make([]LampValue, n)
	for i := 0; i < n; i++ {
		e := entries[i*protocol.UpdateEntrySize:]
		id, err := lc.lampID(uint32(e[0]))
		if err != nil {
			return err
		}
		ids[i] = id
		values[i] = LampFromLevels(e[1], e[2], e[3], e[4])
	}
	lc.ctrl.UpdateLamps(ids, values, boolArg(apply))
	return nil
}

func (lc *LampCommands) handleUpdateRange(data *[]byte) error {
	var args [7]uint32
	if err := decodeArgs(data, args[:]); err != nil {
		return err
	}
	if lc.ctrl.Autonomous() {
		return protocol.ErrAutonomous
	}
	start, err := lc.lampID(args[0])
	if err != nil {
		return err
	}
	end, err := lc.lampID(args[1])
	if err != nil {
		return err
	}
	if start > end {
		return protocol.ErrInvalidArgument
	}
	v, err := levels(args[2], args[3], args[4], args[5])
	if err != nil {
		return err
	}
	lc.ctrl.UpdateRange(start, end, v, boolArg(args[6]))
	return nil
}

func (lc *LampCommands) handleApplyUpdates(data *[]byte) error {
	if lc.ctrl.Autonomous() {
		return protocol.ErrAutonomous
	}
	lc.ctrl.ApplyLampUpdates()
	return nil
}

func (lc *LampCommands) handleGetLamp(data *[]byte) error {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	lamp, err := lc.lampID(v)
	if err != nil {
		return err
	}

	value := lc.ctrl.Lamp(lamp)
	state := lc.ctrl.AnimationState(lamp)
	lc.out.SendCommand(protocol.CmdLampState, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(lamp))
		protocol.EncodeVLQUint(output, uint32(value.R))
		protocol.EncodeVLQUint(output, uint32(value.G))
		protocol.EncodeVLQUint(output, uint32(value.B))
		protocol.EncodeVLQUint(output, uint32(value.I))
		protocol.EncodeVLQUint(output, uint32(state.Stage))
		protocol.EncodeVLQUint(output, state.Frame)
	})
	return nil
}

func (lc *LampCommands) handleSetAutonomous(data *[]byte) error {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	lc.ctrl.SetAutonomous(boolArg(v))
	return nil
}

func (lc *LampCommands) handleSuspend(data *[]byte) error {
	lc.ctrl.Suspend()
	return nil
}

func (lc *LampCommands) handleResume(data *[]byte) error {
	lc.ctrl.Resume()
	return nil
}

func (lc *LampCommands) handleSaveDefault(data *[]byte) error {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	lamp, err := lc.lampID(v)
	if err != nil {
		return err
	}
	return storageError(lc.ctrl.SaveDefault(lamp))
}

func (lc *LampCommands) handleLoadDefaults(data *[]byte) error {
	return storageError(lc.ctrl.LoadDefaults())
}

func (lc *LampCommands) handleReset(data *[]byte) error {
	flags, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if flags&protocol.ResetClearDefaults != 0 {
		if err := lc.ctrl.ClearDefaults(); err != nil {
			return storageError(err)
		}
	}
	if flags&protocol.ResetBootloader != 0 && lc.bootloader != nil {
		lc.bootloader()
	}
	return nil
}

func (lc *LampCommands) handleSetAttributesLamp(data *[]byte) error {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if v > 0xFF {
		v = 0
	}
	lc.ctrl.SetNextAttributesLamp(uint8(v))
	return nil
}

func (lc *LampCommands) handleGetLampAttributes(data *[]byte) error {
	a := lc.ctrl.LampAttributes()
	lc.out.SendCommand(protocol.CmdLampAttributes, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(a.LampID))
		protocol.EncodeVLQInt(output, a.Position[0])
		protocol.EncodeVLQInt(output, a.Position[1])
		protocol.EncodeVLQInt(output, a.Position[2])
		protocol.EncodeVLQUint(output, a.UpdateLatencyUS)
		protocol.EncodeVLQUint(output, uint32(a.Purpose))
		protocol.EncodeVLQUint(output, uint32(a.RedLevels))
		protocol.EncodeVLQUint(output, uint32(a.GreenLevels))
		protocol.EncodeVLQUint(output, uint32(a.BlueLevels))
		protocol.EncodeVLQUint(output, uint32(a.IntensityLevels))
		protocol.EncodeVLQUint(output, boolVal(a.Programmable))
		protocol.EncodeVLQUint(output, uint32(a.InputBinding))
	})
	return nil
}
