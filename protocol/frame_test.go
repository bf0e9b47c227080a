package protocol

import "testing"

func TestCRC16(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("Expected CRC of empty input to be 0xFFFF, got 0x%04X", got)
	}
	// CRC-16/MCRF4XX check value
	if got := CRC16([]byte("123456789")); got != 0x6F91 {
		t.Errorf("Expected check value 0x6F91, got 0x%04X", got)
	}
}

func TestCRC16Different(t *testing.T) {
	crc1 := CRC16([]byte{0x01, 0x02, 0x03})
	crc2 := CRC16([]byte{0x01, 0x02, 0x04})

	if crc1 == crc2 {
		t.Errorf("CRC16 collision: both inputs produced %04X", crc1)
	}
}

func TestAppendFrame(t *testing.T) {
	frame := AppendFrame(nil, MessageDest|3, []byte{0x01, 0x02})

	if len(frame) != 7 || frame[MessagePositionLen] != 7 {
		t.Fatalf("Expected a 7 byte frame, got % x", frame)
	}
	if frame[MessagePositionSeq] != 0x13 {
		t.Errorf("Expected sequence 0x13, got 0x%02x", frame[MessagePositionSeq])
	}
	if frame[len(frame)-1] != MessageValueSync {
		t.Errorf("Expected trailing sync byte, got 0x%02x", frame[len(frame)-1])
	}

	msgLen, status := scanFrame(frame)
	if status != frameOK || msgLen != 7 {
		t.Errorf("Expected scanFrame to accept the frame, got len=%d status=%d", msgLen, status)
	}
}

func TestScanFrame(t *testing.T) {
	good := AppendFrame(nil, MessageDest, []byte{0x05})

	badCRC := append([]byte(nil), good...)
	badCRC[3] ^= 0xFF

	badSeq := append([]byte(nil), good...)
	badSeq[MessagePositionSeq] = 0x20

	badLen := append([]byte(nil), good...)
	badLen[MessagePositionLen] = 2

	tests := []struct {
		name string
		data []byte
		want frameStatus
	}{
		{"complete", good, frameOK},
		{"short", good[:3], frameNeedMore},
		{"partial", good[:len(good)-1], frameNeedMore},
		{"bad crc", badCRC, frameBad},
		{"bad dest", badSeq, frameBad},
		{"bad length", badLen, frameBad},
	}

	for _, tt := range tests {
		if _, got := scanFrame(tt.data); got != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestNextSeqWraps(t *testing.T) {
	if got := nextSeq(0x1F); got != MessageDest {
		t.Errorf("Expected 0x1F to wrap to 0x10, got 0x%02x", got)
	}
	if got := nextSeq(0x14); got != 0x15 {
		t.Errorf("Expected 0x15, got 0x%02x", got)
	}
}
