package visca

import (
	"fmt"
	"strings"
)

// Axis values travel on the wire as a 2-byte big-endian signed integer
// split into nibbles, each nibble carried in its own byte with a zero
// high half. In text form that is four two-character groups like
// "01 02 03 04" for 0x1234. The spaces are cosmetic; decoding accepts
// input with or without them.

// FormatError reports malformed codec input. It is never silently
// coerced: a value that does not fit or a digit string that does not
// parse aborts the operation.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed axis value %q: %s", e.Input, e.Reason)
}

const (
	axisMin = -32768
	axisMax = 32767
)

// EncodeAxis converts a signed axis value to its zero-nibble-padded hex
// representation.
func EncodeAxis(value int) (string, error) {
	if value < axisMin || value > axisMax {
		return "", &FormatError{
			Input:  fmt.Sprintf("%d", value),
			Reason: "outside signed 16-bit range",
		}
	}

	digits := fmt.Sprintf("%04x", uint16(int16(value)))
	groups := make([]string, 0, 4)
	for _, d := range digits {
		groups = append(groups, "0"+string(d))
	}
	return strings.Join(groups, " "), nil
}

// DecodeAxis converts a zero-nibble-padded hex string back to the signed
// axis value. Separators are stripped first; the remaining 8 digits must
// all be valid hex. Only the odd-indexed digits carry information, the
// even-indexed ones are the inserted zero nibbles.
func DecodeAxis(padded string) (int, error) {
	stripped := strings.ReplaceAll(padded, " ", "")
	if len(stripped) != 8 {
		return 0, &FormatError{Input: padded, Reason: "want 8 hex digits"}
	}

	var raw uint16
	for i, c := range stripped {
		n, ok := nibble(byte(c))
		if !ok {
			return 0, &FormatError{Input: padded, Reason: "not a hex digit"}
		}
		if i%2 == 1 {
			raw = raw<<4 | uint16(n)
		}
	}
	return int(int16(raw)), nil
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
