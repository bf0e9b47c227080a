package protocol

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds how long the host waits for an ACK.
const DefaultTimeout = 2 * time.Second

// ResponseHandler is a function type for handling received responses
type ResponseHandler func(cmdID uint16, data *[]byte) error

// HostTransport is the host side of the command channel. It sends commands,
// waits for ACKs and collects responses from a background reader.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq     uint32 // sequence of the next command (0x10-0x1F)
	isSynchronized uint32

	inputBuffer *FifoBuffer

	ackChan      chan *Message
	responseChan chan *Message

	responseHandler ResponseHandler

	writeMutex sync.Mutex
	readMutex  sync.Mutex

	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once
}

// Message is one frame received from the device.
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // frame data without header/trailer
	CRC      uint16
}

// Command decodes the command ID of m and returns it with the remaining
// argument bytes.
func (m *Message) Command() (uint16, []byte, error) {
	data := m.Payload
	id, err := DecodeVLQUint(&data)
	if err != nil {
		return 0, nil, err
	}
	return uint16(id), data, nil
}

// NewHostTransport creates a host transport over port and starts its reader.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:           port,
		currentSeq:     MessageDest,
		isSynchronized: 1,
		inputBuffer:    NewFifoBuffer(512),
		ackChan:        make(chan *Message, 1),
		responseChan:   make(chan *Message, 16),
		stopChan:       make(chan struct{}),
		doneChan:       make(chan struct{}),
	}

	go t.readLoop()

	return t
}

// SendCommand sends a command and waits for its ACK.
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultTimeout)
}

// SendCommandWithTimeout sends a command with a custom ACK timeout.
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	msg, err := t.buildCommandMessage(cmdID, args)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	if err := t.writeMessage(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := t.waitForAck(timeout); err != nil {
		return fmt.Errorf("ACK timeout or error: %w", err)
	}

	return nil
}

// Exchange sends a command and returns the responses the device queued
// for it. The device sends responses ahead of the ACK, so once the ACK is in
// every response has already been dispatched.
func (t *HostTransport) Exchange(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) ([]*Message, error) {
	t.drainResponses()

	if err := t.SendCommandWithTimeout(cmdID, args, timeout); err != nil {
		return nil, err
	}
	return t.drainResponses(), nil
}

func (t *HostTransport) drainResponses() []*Message {
	var out []*Message
	for {
		select {
		case m := <-t.responseChan:
			out = append(out, m)
		default:
			return out
		}
	}
}

// buildCommandMessage constructs a complete frame for one command.
func (t *HostTransport) buildCommandMessage(cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	payload := scratch.Result()

	msgLen := MessageLengthMin + len(payload)
	if msgLen > MessageLengthMax {
		return nil, fmt.Errorf("message too long: %d bytes (max %d)", msgLen, MessageLengthMax)
	}

	seq := uint8(atomic.LoadUint32(&t.currentSeq))
	return AppendFrame(make([]byte, 0, msgLen), seq, payload), nil
}

// writeMessage sends a message to the serial port
func (t *HostTransport) writeMessage(msg []byte) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	n, err := t.port.Write(msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}

	return nil
}

// waitForAck waits for the ACK of the current sequence and advances it.
func (t *HostTransport) waitForAck(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ack := <-t.ackChan:
		expectedSeq := uint8(atomic.LoadUint32(&t.currentSeq))
		next := nextSeq(expectedSeq)
		if ack.Sequence != next {
			return fmt.Errorf("sequence mismatch: expected 0x%02x, got 0x%02x", next, ack.Sequence)
		}
		atomic.StoreUint32(&t.currentSeq, uint32(next))
		return nil

	case <-timer.C:
		return fmt.Errorf("ACK timeout after %v", timeout)

	case <-t.stopChan:
		return fmt.Errorf("transport stopped")
	}
}

// ReceiveResponse receives a response message with timeout
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil

	case <-timer.C:
		return nil, fmt.Errorf("response timeout after %v", timeout)

	case <-t.stopChan:
		return nil, fmt.Errorf("transport stopped")
	}
}

// SetResponseHandler sets a callback for handling responses asynchronously
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.responseHandler = handler
}

// readLoop reads from the port until the transport is closed.
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		n, err := t.port.Read(buffer)
		if n > 0 {
			t.processMessages(buffer[:n])
		}
		if err == nil {
			continue
		}

		select {
		case <-t.stopChan:
			return
		default:
		}
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
			return
		}
		// serial reads time out with io.EOF; keep polling
		time.Sleep(10 * time.Millisecond)
	}
}

// processMessages queues in and dispatches every complete frame.
func (t *HostTransport) processMessages(in []byte) {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	t.inputBuffer.Write(in)
	data := t.inputBuffer.Data()

	for len(data) > 0 {
		if !t.getSynchronized() {
			rest, found := skipToSync(data)
			data = rest
			if found {
				t.setSynchronized(true)
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

		payload := make([]byte, msgLen-MessageLengthMin)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])

		msg := &Message{
			Length:   data[MessagePositionLen],
			Sequence: data[MessagePositionSeq],
			Payload:  payload,
			CRC:      uint16(data[msgLen-MessageTrailerCRC])<<8 | uint16(data[msgLen-MessageTrailerCRC+1]),
		}
		data = data[msgLen:]

		t.dispatchMessage(msg)
	}

	consumed := t.inputBuffer.Available() - len(data)
	if consumed > 0 {
		t.inputBuffer.Pop(consumed)
	}
}

// dispatchMessage routes a message to the ACK or response channel
func (t *HostTransport) dispatchMessage(msg *Message) {
	if len(msg.Payload) == 0 {
		select {
		case t.ackChan <- msg:
		default:
			// an unclaimed ACK is stale; replace it
			select {
			case <-t.ackChan:
			default:
			}
			t.ackChan <- msg
		}
		return
	}

	if t.responseHandler != nil {
		if cmdID, args, err := msg.Command(); err == nil {
			_ = t.responseHandler(cmdID, &args)
		}
	}

	select {
	case t.responseChan <- msg:
	default:
		// drop the oldest response
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the reader and closes the port.
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// Reset returns the transport to its initial sequence and drops queued input.
func (t *HostTransport) Reset() {
	atomic.StoreUint32(&t.isSynchronized, 1)
	atomic.StoreUint32(&t.currentSeq, MessageDest)

	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	t.drainResponses()

	t.readMutex.Lock()
	t.inputBuffer.Reset()
	t.readMutex.Unlock()
}

func (t *HostTransport) getSynchronized() bool {
	return atomic.LoadUint32(&t.isSynchronized) != 0
}

func (t *HostTransport) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&t.isSynchronized, 1)
	} else {
		atomic.StoreUint32(&t.isSynchronized, 0)
	}
}

// CurrentSequence returns the sequence of the next command.
func (t *HostTransport) CurrentSequence() uint8 {
	return uint8(atomic.LoadUint32(&t.currentSeq))
}
