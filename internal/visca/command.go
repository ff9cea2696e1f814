package visca

import (
	"fmt"
)

// Command payloads, without the address byte and 0xFF terminator the
// Controller frames around them.
//
// Absolute position move: 01 06 02 VV WW <pan nibbles> <tilt nibbles>
// where VV/WW are the pan and tilt speed magnitudes. The zoom target
// travels in a separate message: 01 04 47 <zoom nibbles>. Direction of
// travel is taken by the device from the sign of the target position;
// the speed bytes carry magnitude only. That asymmetry is how the
// device actually behaves, so it is preserved here as-is.

const (
	// SpeedMin and SpeedMax bound the commanded pan/tilt rate. The
	// envelope is device calibration, not a free parameter.
	SpeedMin = -24
	SpeedMax = 24
)

// RangeError reports a speed outside the device envelope. Commands are
// rejected before anything is transmitted.
type RangeError struct {
	Axis  string
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s speed %d out of range [%d, %d]", e.Axis, e.Value, SpeedMin, SpeedMax)
}

// ValidateSpeed checks a commanded axis speed against the envelope.
func ValidateSpeed(axis string, speed int) error {
	if speed < SpeedMin || speed > SpeedMax {
		return &RangeError{Axis: axis, Value: speed}
	}
	return nil
}

// AbsoluteMove builds the pan/tilt portion of a move-to-position
// operation.
func AbsoluteMove(pos Position, panSpeed, tiltSpeed int) ([]byte, error) {
	if err := ValidateSpeed("pan", panSpeed); err != nil {
		return nil, err
	}
	if err := ValidateSpeed("tilt", tiltSpeed); err != nil {
		return nil, err
	}

	pan, err := axisNibbles(pos.Pan)
	if err != nil {
		return nil, fmt.Errorf("pan: %w", err)
	}
	tilt, err := axisNibbles(pos.Tilt)
	if err != nil {
		return nil, fmt.Errorf("tilt: %w", err)
	}

	payload := make([]byte, 0, 13)
	payload = append(payload, 0x01, 0x06, 0x02)
	payload = append(payload, speedByte(panSpeed), speedByte(tiltSpeed))
	payload = append(payload, pan...)
	payload = append(payload, tilt...)
	return payload, nil
}

// ZoomMove builds the zoom portion of a move-to-position operation.
func ZoomMove(pos Position) ([]byte, error) {
	zoom, err := axisNibbles(pos.Zoom)
	if err != nil {
		return nil, fmt.Errorf("zoom: %w", err)
	}

	payload := make([]byte, 0, 7)
	payload = append(payload, 0x01, 0x04, 0x47)
	payload = append(payload, zoom...)
	return payload, nil
}

// PanTiltHome builds the pan/tilt home command.
func PanTiltHome() []byte {
	return []byte{0x01, 0x06, 0x04}
}

// InquirePanTilt builds the pan/tilt position inquiry.
func InquirePanTilt() []byte {
	return []byte{0x09, 0x06, 0x12}
}

// InquireZoom builds the zoom position inquiry.
func InquireZoom() []byte {
	return []byte{0x09, 0x04, 0x47}
}

// ParsePanTiltReply extracts the encoded pan and tilt fields from an
// inquiry reply: Y0 50 <pan nibbles> <tilt nibbles> FF.
func ParsePanTiltReply(reply []byte) (pan, tilt string, err error) {
	body, err := inquiryBody(reply, 8)
	if err != nil {
		return "", "", err
	}
	if pan, err = encodedFromNibbles(body[:4]); err != nil {
		return "", "", fmt.Errorf("pan: %w", err)
	}
	if tilt, err = encodedFromNibbles(body[4:8]); err != nil {
		return "", "", fmt.Errorf("tilt: %w", err)
	}
	return pan, tilt, nil
}

// ParseZoomReply extracts the encoded zoom field from an inquiry reply:
// Y0 50 <zoom nibbles> FF.
func ParseZoomReply(reply []byte) (string, error) {
	body, err := inquiryBody(reply, 4)
	if err != nil {
		return "", err
	}
	zoom, err := encodedFromNibbles(body)
	if err != nil {
		return "", fmt.Errorf("zoom: %w", err)
	}
	return zoom, nil
}

func inquiryBody(reply []byte, n int) ([]byte, error) {
	if len(reply) < n+3 {
		return nil, fmt.Errorf("inquiry reply too short: % x", reply)
	}
	if reply[0]&0xf0 != 0x90 || reply[1] != 0x50 {
		return nil, fmt.Errorf("unexpected inquiry reply header: % x", reply[:2])
	}
	return reply[2 : 2+n], nil
}

func speedByte(speed int) byte {
	if speed < 0 {
		speed = -speed
	}
	return byte(speed)
}

// axisNibbles converts a canonical encoded axis string into its four
// wire bytes, one zero-padded nibble each.
func axisNibbles(encoded string) ([]byte, error) {
	// Round-trip through the codec so a hand-built Position with a
	// malformed field is caught here rather than sent.
	if _, err := DecodeAxis(encoded); err != nil {
		return nil, err
	}

	out := make([]byte, 0, 4)
	var hi byte
	for i, c := range stripSpaces(encoded) {
		n, _ := nibble(byte(c))
		if i%2 == 0 {
			hi = n
			continue
		}
		out = append(out, hi<<4|n)
	}
	return out, nil
}

// encodedFromNibbles rebuilds the canonical encoded string from four
// wire bytes of a device reply.
func encodedFromNibbles(raw []byte) (string, error) {
	digits := make([]byte, 0, 8)
	for _, b := range raw {
		digits = append(digits, []byte(fmt.Sprintf("%02x", b))...)
	}
	v, err := DecodeAxis(string(digits))
	if err != nil {
		return "", err
	}
	return EncodeAxis(v)
}

func stripSpaces(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
