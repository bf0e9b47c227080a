package protocol

import (
	"errors"

	"hidlight/debug"
)

// Command and response IDs shared by the firmware and host tools. The
// argument formats are listed in the firmware's command dictionary, which
// the host can read with identify.
const (
	CmdIdentifyResponse uint16 = iota // offset=%u data=%*s
	CmdIdentify                       // offset=%u count=%c
	CmdGetConfig                      //
	CmdConfig                         // lamps=%c frame_us=%u autonomous=%c suspended=%c version=%*s
	CmdSetAnimation                   // lamp=%c type=%c save=%c data=%*s
	CmdUpdateLamp                     // lamp=%c r=%c g=%c b=%c i=%c apply=%c
	CmdUpdateLamps                    // entries=%*s apply=%c
	CmdUpdateRange                    // start=%c end=%c r=%c g=%c b=%c i=%c apply=%c
	CmdApplyUpdates                   //
	CmdGetLamp                        // lamp=%c
	CmdLampState                      // lamp=%c r=%hu g=%hu b=%hu i=%c stage=%c frame=%u
	CmdSetAutonomous                  // enable=%c
	CmdSuspend                        //
	CmdResume                         //
	CmdSaveDefault                    // lamp=%c
	CmdLoadDefaults                   //
	CmdReset                          // flags=%c
	CmdSetAttributesLamp              // lamp=%c
	CmdGetLampAttributes              //
	CmdLampAttributes                 // lamp=%c x=%i y=%i z=%i latency=%u purpose=%hu r=%c g=%c b=%c i=%c programmable=%c binding=%hu
	CmdError                          // cmd=%u code=%c
	CmdGetTemperature                 //
	CmdTemperature                    // centi_c=%i
	CmdGetLampRecord                  // lamp=%c
	CmdLampRecord                     // lamp=%c type=%c data=%*s
	CmdGetEvent                       // index=%c
	CmdEvent                          // index=%c count=%c type=%c lamp=%c clock=%u v1=%u v2=%u
	CmdDumpSettings                   //
	CmdSettingsInfo                   // records=%c slots=%c
)

// Reset flags.
const (
	ResetClearDefaults = 1 << 0
	ResetBootloader    = 1 << 1
)

// UpdateEntrySize is the encoded size of one update_lamps entry:
// lamp, r, g, b, i.
const UpdateEntrySize = 5

// MaxUpdateEntries is the largest batch update_lamps accepts.
const MaxUpdateEntries = 8

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidLamp     = errors.New("lamp id out of range")
	ErrAutonomous      = errors.New("lamp updates rejected in autonomous mode")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("settings storage failed")
)

// Error codes carried by the error response.
const (
	CodeUnknown uint8 = iota
	CodeUnknownCommand
	CodeInvalidLamp
	CodeAutonomous
	CodeInvalidArgument
	CodeStorage
	CodeMalformed
)

var codeErrors = []struct {
	code uint8
	err  error
}{
	{CodeUnknownCommand, ErrUnknownCommand},
	{CodeInvalidLamp, ErrInvalidLamp},
	{CodeAutonomous, ErrAutonomous},
	{CodeInvalidArgument, ErrInvalidArgument},
	{CodeStorage, ErrStorage},
	{CodeMalformed, ErrInvalidVLQ},
	{CodeMalformed, ErrBufferTooSmall},
}

// ErrorCode maps a handler error to the code sent to the host.
func ErrorCode(err error) uint8 {
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return CodeUnknown
}

// CodeError maps an error code back to its sentinel error.
func CodeError(code uint8) error {
	for _, ce := range codeErrors {
		if ce.code == code {
			return ce.err
		}
	}
	return errors.New("device error " + debug.Itoa(int(code)))
}
