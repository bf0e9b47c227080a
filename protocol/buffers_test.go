package protocol

import (
	"bytes"
	"sync"
	"testing"
)

func TestSliceInputBufferPop(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})

	buf.Pop(2)
	if buf.Available() != 3 || buf.Data()[0] != 3 {
		t.Errorf("After Pop(2) expected [3 4 5], got %v", buf.Data())
	}

	buf.Pop(10)
	if buf.Available() != 0 {
		t.Errorf("Expected Pop past the end to empty the buffer, got %v", buf.Data())
	}
}

func TestScratchOutputPatchesLength(t *testing.T) {
	out := NewScratchOutput()
	out.Output([]byte{0, 0x10})
	out.Output([]byte{7, 8})

	out.Update(0, 4)
	if got := out.Result(); !bytes.Equal(got, []byte{4, 0x10, 7, 8}) {
		t.Errorf("Unexpected result % x", got)
	}
	if got := out.DataSince(2); !bytes.Equal(got, []byte{7, 8}) {
		t.Errorf("DataSince(2) = % x", got)
	}
	if out.DataSince(9) != nil {
		t.Error("Expected nil for a position past the end")
	}

	// Positions past the written data are left alone.
	out.Update(10, 0xFF)
	if out.CurPosition() != 4 {
		t.Errorf("Update moved the cursor to %d", out.CurPosition())
	}

	out.Reset()
	if out.CurPosition() != 0 || len(out.Result()) != 0 {
		t.Error("Expected Reset to empty the buffer")
	}
}

func TestScratchOutputCountsOverflow(t *testing.T) {
	out := NewScratchOutput()
	out.Output(make([]byte, MessageMax-2))
	out.Output([]byte{1, 2, 3, 4, 5})

	if out.CurPosition() != MessageMax {
		t.Errorf("Expected a full buffer, got position %d", out.CurPosition())
	}
	if out.Dropped != 3 {
		t.Errorf("Expected 3 dropped bytes, got %d", out.Dropped)
	}

	out.Reset()
	if out.Dropped != 3 {
		t.Error("Expected Reset to keep the overflow count")
	}
}

func TestFifoBufferRoundsCapacity(t *testing.T) {
	fifo := NewFifoBuffer(10)
	if fifo.Free() != 16 {
		t.Errorf("Expected capacity 16, got %d", fifo.Free())
	}

	n := fifo.Write(make([]byte, 20))
	if n != 16 || fifo.Free() != 0 {
		t.Errorf("Expected to fill 16 bytes, wrote %d with %d free", n, fifo.Free())
	}
	if fifo.Write([]byte{1}) != 0 {
		t.Error("Expected a full buffer to refuse writes")
	}
}

func TestFifoBufferReadAndPop(t *testing.T) {
	fifo := NewFifoBuffer(8)
	if !fifo.IsEmpty() {
		t.Fatal("New FIFO should be empty")
	}

	fifo.Write([]byte{1, 2, 3, 4, 5})
	got := make([]byte, 3)
	if n := fifo.Read(got); n != 3 || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Read returned %d bytes % x", n, got)
	}

	fifo.Pop(1)
	if !bytes.Equal(fifo.Data(), []byte{5}) {
		t.Errorf("Expected [5] after Pop, got % x", fifo.Data())
	}

	fifo.Pop(5)
	if !fifo.IsEmpty() {
		t.Error("Expected Pop past the end to empty the buffer")
	}
}

func TestFifoBufferDataAcrossWrap(t *testing.T) {
	fifo := NewFifoBuffer(8)
	fifo.Write([]byte{1, 2, 3, 4, 5, 6})
	fifo.Pop(5)

	// Three bytes at the end of the ring, two at the start.
	fifo.Write([]byte{7, 8, 9, 10})
	if got := fifo.Data(); !bytes.Equal(got, []byte{6, 7, 8, 9, 10}) {
		t.Errorf("Expected contiguous data across the wrap, got % x", got)
	}

	fifo.Pop(2)
	if got := fifo.Data(); !bytes.Equal(got, []byte{8, 9, 10}) {
		t.Errorf("Expected [8 9 10], got % x", got)
	}

	fifo.Reset()
	if !fifo.IsEmpty() || fifo.Free() != 8 {
		t.Errorf("Expected an empty buffer after Reset, %d available", fifo.Available())
	}
}

func TestFifoBufferConcurrentWriter(t *testing.T) {
	const total = 10000
	fifo := NewFifoBuffer(64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if fifo.Write([]byte{byte(i)}) == 1 {
				i++
			}
		}
	}()

	for want := 0; want < total; {
		for _, b := range fifo.Data() {
			if b != byte(want) {
				t.Fatalf("Byte %d: expected %d, got %d", want, byte(want), b)
			}
			fifo.Pop(1)
			want++
		}
	}
	wg.Wait()
}
