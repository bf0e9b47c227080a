package debug

// Itoa converts an integer to a string without the fmt package, which is
// too heavy for the firmware image.
func Itoa(n int) string {
	if n < 0 {
		return "-" + Utoa(uint32(-n))
	}
	return Utoa(uint32(n))
}

// Utoa converts an unsigned integer to a string
func Utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// Hex16 formats v as 0x followed by four hex digits.
func Hex16(v uint16) string {
	const digits = "0123456789abcdef"
	return "0x" + string([]byte{
		digits[v>>12&0xF],
		digits[v>>8&0xF],
		digits[v>>4&0xF],
		digits[v&0xF],
	})
}
