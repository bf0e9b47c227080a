package protocol

// CRC16 calculates the frame checksum (CRC-16/MCRF4XX as used by Klipper)
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

type frameStatus uint8

const (
	frameOK       frameStatus = iota
	frameNeedMore             // a valid prefix; wait for more bytes
	frameBad                  // not a frame; resynchronize
)

// scanFrame validates the frame at the start of data and returns its length.
func scanFrame(data []byte) (int, frameStatus) {
	if len(data) < MessageLengthMin {
		return 0, frameNeedMore
	}

	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return 0, frameBad
	}
	if data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return 0, frameBad
	}
	if len(data) < msgLen {
		return 0, frameNeedMore
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return 0, frameBad
	}

	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return 0, frameBad
	}
	return msgLen, frameOK
}

// skipToSync returns data after the first sync byte, or nil if there is none.
func skipToSync(data []byte) ([]byte, bool) {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:], true
		}
	}
	return nil, false
}

// AppendFrame appends a complete frame carrying payload to dst.
func AppendFrame(dst []byte, seq uint8, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, uint8(MessageLengthMin+len(payload)), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync)
}
