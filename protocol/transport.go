package protocol

import "sync/atomic"

// CommandHandler is a function type for handling decoded commands
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the device side of the command channel. It parses frames from
// the host, dispatches their commands, and queues responses and ACKs in the
// output buffer. Responses to a frame are queued before its ACK, so the host
// has every response in hand once the ACK arrives.
type Transport struct {
	isSynchronized uint32 // atomic bool (0 = false, 1 = true)
	nextSequence   uint32 // expected sequence from host, also used for replies

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func() // called when a host reset is detected
	flushCallback func() // called after each ACK is queued
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		isSynchronized: 1,
		nextSequence:   MessageDest,
		output:         output,
		handler:        handler,
	}
}

// Receive processes as many complete frames as input holds and pops the
// consumed bytes.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.getSynchronized() {
			rest, found := skipToSync(data)
			data = rest
			if found {
				t.setSynchronized(true)
				t.encodeAckNak()
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		msgLen, status := scanFrame(data)
		if status == frameNeedMore {
			break
		}
		if status == frameBad {
			t.setSynchronized(false)
			continue
		}

		seq := data[MessagePositionSeq]
		frame := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]

		// sequence back to MessageDest means the host restarted
		expectedSeq := uint8(atomic.LoadUint32(&t.nextSequence))
		if seq == MessageDest && expectedSeq != MessageDest {
			atomic.StoreUint32(&t.nextSequence, MessageDest)
			expectedSeq = MessageDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}

		if seq == expectedSeq {
			atomic.StoreUint32(&t.nextSequence, uint32(nextSeq(seq)))
			_ = t.parseFrame(frame)
		}
		// an ACK for a frame with an unexpected sequence acts as a NAK
		t.encodeAckNak()
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// parseFrame dispatches every command in frame. A handler error stops the
// frame and is reported to the host with an error response.
func (t *Transport) parseFrame(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.setSynchronized(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.setSynchronized(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			t.SendError(uint16(cmdID), err)
			return err
		}
	}
	return nil
}

// SendError queues an error response for cmdID.
func (t *Transport) SendError(cmdID uint16, err error) {
	t.SendCommand(CmdError, func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		EncodeVLQUint(output, uint32(ErrorCode(err)))
	})
}

// encodeAckNak queues an empty frame carrying the next expected sequence.
func (t *Transport) encodeAckNak() {
	var buf [MessageLengthMin]byte
	ns := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output(AppendFrame(buf[:0], ns, nil))

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// EncodeFrame encodes one frame whose payload is written by frameData.
// Responses carry the current sequence; it is not advanced.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	t.output.Output([]byte{0, seq})

	frameData(t.output)

	changed := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(changed+MessageTrailerSize))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc),
		MessageValueSync,
	})
}

// SendCommand sends a command with arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset resets the transport state (useful after USB disconnect/reconnect)
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.nextSequence, MessageDest)

	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback run after each ACK is queued, so the
// target can push it out without waiting for the main loop.
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

func (t *Transport) getSynchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&t.isSynchronized, 1)
	} else {
		atomic.StoreUint32(&t.isSynchronized, 0)
	}
}
