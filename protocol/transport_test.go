package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// splitFrames parses every frame in out.
func splitFrames(t *testing.T, out []byte) []*Message {
	t.Helper()
	var msgs []*Message
	for len(out) > 0 {
		msgLen, status := scanFrame(out)
		require.Equal(t, frameOK, status, "malformed output % x", out)
		msgs = append(msgs, &Message{
			Length:   out[MessagePositionLen],
			Sequence: out[MessagePositionSeq],
			Payload:  out[MessageHeaderSize : msgLen-MessageTrailerSize],
		})
		out = out[msgLen:]
	}
	return msgs
}

func commandFrame(seq uint8, cmdID uint16, args ...uint32) []byte {
	out := NewScratchOutput()
	EncodeVLQUint(out, uint32(cmdID))
	for _, a := range args {
		EncodeVLQUint(out, a)
	}
	return AppendFrame(nil, seq, out.Result())
}

type recordedCommand struct {
	id   uint16
	args []uint32
}

func newTestTransport(argc map[uint16]int, fail map[uint16]error) (*Transport, *ScratchOutput, *[]recordedCommand) {
	out := NewScratchOutput()
	var got []recordedCommand
	handler := func(cmdID uint16, data *[]byte) error {
		if err, ok := fail[cmdID]; ok {
			return err
		}
		rc := recordedCommand{id: cmdID}
		for i := 0; i < argc[cmdID]; i++ {
			v, err := DecodeVLQUint(data)
			if err != nil {
				return err
			}
			rc.args = append(rc.args, v)
		}
		got = append(got, rc)
		return nil
	}
	return NewTransport(out, handler), out, &got
}

func TestTransportDispatchAndAck(t *testing.T) {
	tr, out, got := newTestTransport(map[uint16]int{CmdUpdateLamp: 6}, nil)

	input := NewSliceInputBuffer(commandFrame(MessageDest, CmdUpdateLamp, 1, 255, 0, 128, 1, 1))
	tr.Receive(input)

	require.Equal(t, 0, input.Available())
	require.Equal(t, []recordedCommand{{CmdUpdateLamp, []uint32{1, 255, 0, 128, 1, 1}}}, *got)

	msgs := splitFrames(t, out.Result())
	require.Len(t, msgs, 1)
	require.Empty(t, msgs[0].Payload, "expected an ACK")
	require.Equal(t, uint8(0x11), msgs[0].Sequence)
}

func TestTransportMultipleCommandsInFrame(t *testing.T) {
	tr, _, got := newTestTransport(map[uint16]int{CmdSuspend: 0, CmdGetLamp: 1}, nil)

	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(CmdSuspend))
	EncodeVLQUint(payload, uint32(CmdGetLamp))
	EncodeVLQUint(payload, 2)
	tr.Receive(NewSliceInputBuffer(AppendFrame(nil, MessageDest, payload.Result())))

	require.Equal(t, []recordedCommand{{CmdSuspend, nil}, {CmdGetLamp, []uint32{2}}}, *got)
}

func TestTransportHandlerErrorSendsErrorResponse(t *testing.T) {
	tr, out, _ := newTestTransport(nil, map[uint16]error{CmdUpdateLamp: ErrAutonomous})

	tr.Receive(NewSliceInputBuffer(commandFrame(MessageDest, CmdUpdateLamp, 0)))

	msgs := splitFrames(t, out.Result())
	require.Len(t, msgs, 2, "expected error response then ACK")

	cmdID, args, err := msgs[0].Command()
	require.NoError(t, err)
	require.Equal(t, CmdError, cmdID)

	failed, _ := DecodeVLQUint(&args)
	code, _ := DecodeVLQUint(&args)
	require.Equal(t, uint32(CmdUpdateLamp), failed)
	require.Equal(t, uint32(CodeAutonomous), code)
	require.Empty(t, msgs[1].Payload)
}

func TestTransportWrongSequenceIsNak(t *testing.T) {
	tr, out, got := newTestTransport(map[uint16]int{CmdSuspend: 0}, nil)

	tr.Receive(NewSliceInputBuffer(commandFrame(0x15, CmdSuspend)))

	require.Empty(t, *got)
	msgs := splitFrames(t, out.Result())
	require.Len(t, msgs, 1)
	require.Equal(t, uint8(MessageDest), msgs[0].Sequence, "NAK should carry the expected sequence")
}

func TestTransportResyncAfterCorruption(t *testing.T) {
	tr, out, got := newTestTransport(map[uint16]int{CmdSuspend: 0}, nil)

	bad := commandFrame(MessageDest, CmdSuspend)
	bad[2] ^= 0x55
	data := append(bad, commandFrame(MessageDest, CmdSuspend)...)
	tr.Receive(NewSliceInputBuffer(data))

	require.Len(t, *got, 1, "frame after the corrupt one should be processed")
	msgs := splitFrames(t, out.Result())
	require.NotEmpty(t, msgs)
	require.Equal(t, uint8(0x11), msgs[len(msgs)-1].Sequence)
}

func TestTransportPartialFrameWaits(t *testing.T) {
	tr, _, got := newTestTransport(map[uint16]int{CmdSuspend: 0}, nil)

	frame := commandFrame(MessageDest, CmdSuspend)
	fifo := NewFifoBuffer(64)
	fifo.Write(frame[:3])
	tr.Receive(fifo)
	require.Empty(t, *got)
	require.Equal(t, 3, fifo.Available())

	fifo.Write(frame[3:])
	tr.Receive(fifo)
	require.Len(t, *got, 1)
	require.True(t, fifo.IsEmpty())
}

func TestTransportHostReset(t *testing.T) {
	tr, _, _ := newTestTransport(map[uint16]int{CmdSuspend: 0}, nil)
	resets := 0
	tr.SetResetCallback(func() { resets++ })

	tr.Receive(NewSliceInputBuffer(commandFrame(MessageDest, CmdSuspend)))
	tr.Receive(NewSliceInputBuffer(commandFrame(MessageDest, CmdSuspend)))

	require.Equal(t, 1, resets)
}

func TestErrorCodeRoundTrip(t *testing.T) {
	for _, err := range []error{ErrUnknownCommand, ErrInvalidLamp, ErrAutonomous, ErrInvalidArgument, ErrStorage} {
		require.ErrorIs(t, CodeError(ErrorCode(err)), err)
	}
	require.Equal(t, CodeStorage, ErrorCode(errors.Join(ErrStorage, errors.New("flash"))))
	require.Equal(t, CodeUnknown, ErrorCode(errors.New("other")))
}
