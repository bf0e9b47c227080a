package protocol

import "sync/atomic"

// InputBuffer is the receive side of a Transport.
type InputBuffer interface {
	// Data returns the buffered bytes as one contiguous slice.
	Data() []byte

	// Available returns the number of buffered bytes.
	Available() int

	// Pop discards n bytes from the front.
	Pop(n int)
}

// OutputBuffer is the send side of a Transport. Frames are written in
// place and their length byte is patched once the payload is known.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer reads from a fixed byte slice.
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer returns an InputBuffer over data.
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	s.data = s.data[min(n, len(s.data)):]
}

// ScratchOutput collects outgoing frames in a fixed MessageMax buffer until
// the target drains it. Bytes that do not fit are counted in Dropped; the
// truncated frame fails its CRC on the host, which then retransmits.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int

	Dropped int
}

// NewScratchOutput returns an empty ScratchOutput.
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	s.Dropped += len(data) - n
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written since the last Reset.
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset empties the buffer. Dropped is kept.
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is a byte ring for one writer and one reader, such as the
// firmware's USB reader goroutine and its main loop. The capacity is rounded
// up to a power of two so the free-running indices wrap cleanly.
type FifoBuffer struct {
	buf  []byte
	mask uint32
	head atomic.Uint32 // next write; advanced by the writer only
	tail atomic.Uint32 // next read; advanced by the reader only

	flat []byte // contiguous copy returned by Data when the ring wraps
}

// NewFifoBuffer returns a FifoBuffer holding at least capacity bytes.
func NewFifoBuffer(capacity int) *FifoBuffer {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &FifoBuffer{
		buf:  make([]byte, size),
		mask: uint32(size - 1),
		flat: make([]byte, size),
	}
}

// Write appends as much of data as fits and returns the count written.
func (f *FifoBuffer) Write(data []byte) int {
	head, tail := f.head.Load(), f.tail.Load()
	n := min(len(data), len(f.buf)-int(head-tail))
	for i := 0; i < n; i++ {
		f.buf[(head+uint32(i))&f.mask] = data[i]
	}
	f.head.Store(head + uint32(n))
	return n
}

// Read moves up to len(data) bytes out of the buffer.
func (f *FifoBuffer) Read(data []byte) int {
	n := copy(data, f.Data())
	f.Pop(n)
	return n
}

// Available returns the number of unread bytes.
func (f *FifoBuffer) Available() int {
	return int(f.head.Load() - f.tail.Load())
}

// Free returns the number of bytes Write can accept.
func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.Available()
}

// Data returns the unread bytes in order. When they wrap past the end of
// the ring they are copied into a scratch slice that stays valid until the
// next Data call.
func (f *FifoBuffer) Data() []byte {
	tail := f.tail.Load()
	n := int(f.head.Load() - tail)
	start := int(tail & f.mask)
	if start+n <= len(f.buf) {
		return f.buf[start : start+n]
	}
	first := copy(f.flat, f.buf[start:])
	copy(f.flat[first:], f.buf[:n-first])
	return f.flat[:n]
}

// Pop discards up to n unread bytes.
func (f *FifoBuffer) Pop(n int) {
	n = min(n, f.Available())
	f.tail.Add(uint32(n))
}

// IsEmpty reports whether there is nothing to read.
func (f *FifoBuffer) IsEmpty() bool {
	return f.Available() == 0
}

// Reset discards all unread bytes. Only the reader may call it while a
// writer is active.
func (f *FifoBuffer) Reset() {
	f.tail.Store(f.head.Load())
}
