// Package protocol implements the framed command channel between the lamp
// controller and host tools.
//
// A frame is
//
//	len seq payload... crc_hi crc_lo 0x7E
//
// where len counts the whole frame, seq carries MessageDest in the high bits
// and a 4-bit sequence number in the low bits, and the CRC covers len, seq
// and the payload. The payload is a sequence of VLQ-encoded commands. An
// empty payload is an ACK carrying the next expected sequence number.
package protocol

// Version is the firmware protocol version reported by get_config.
const Version = "hidlight-0.1.0"

// Frame layout
const (
	MessageMax         = 512 // output buffer size; several frames may be queued
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// nextSeq returns the sequence number following seq.
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
