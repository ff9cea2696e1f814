package visca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbsoluteMove(t *testing.T) {
	pos, err := NewPosition(0x1234, -1, 0)
	require.NoError(t, err)

	payload, err := AbsoluteMove(pos, 10, -24)
	require.NoError(t, err)

	want := []byte{
		0x01, 0x06, 0x02,
		0x0a, 0x18, // speed magnitudes
		0x01, 0x02, 0x03, 0x04, // pan 0x1234
		0x0f, 0x0f, 0x0f, 0x0f, // tilt -1
	}
	assert.Equal(t, want, payload)
}

func TestAbsoluteMoveSpeedMagnitude(t *testing.T) {
	pos, err := NewPosition(0, 0, 0)
	require.NoError(t, err)

	for speed := SpeedMin; speed <= SpeedMax; speed++ {
		payload, err := AbsoluteMove(pos, speed, speed)
		require.NoError(t, err, "speed %d", speed)

		abs := speed
		if abs < 0 {
			abs = -abs
		}
		assert.Equal(t, byte(abs), payload[3], "pan speed byte for %d", speed)
		assert.Equal(t, byte(abs), payload[4], "tilt speed byte for %d", speed)
	}
}

func TestAbsoluteMoveRejectsOutOfRangeSpeed(t *testing.T) {
	pos, err := NewPosition(0, 0, 0)
	require.NoError(t, err)

	for _, tt := range []struct{ pan, tilt int }{
		{25, 0}, {-25, 0}, {0, 25}, {0, -25}, {100, 100},
	} {
		_, err := AbsoluteMove(pos, tt.pan, tt.tilt)
		var rerr *RangeError
		require.ErrorAs(t, err, &rerr, "speeds %d/%d", tt.pan, tt.tilt)
	}
}

func TestZoomMove(t *testing.T) {
	pos, err := NewPosition(0, 0, 500)
	require.NoError(t, err)

	payload, err := ZoomMove(pos)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x04, 0x47, 0x00, 0x01, 0x0f, 0x04}, payload)
}

func TestParsePanTiltReply(t *testing.T) {
	reply := []byte{
		0x90, 0x50,
		0x00, 0x00, 0x06, 0x04, // pan 100
		0x0f, 0x0f, 0x0c, 0x0e, // tilt -50
		0xff,
	}

	pan, tilt, err := ParsePanTiltReply(reply)
	require.NoError(t, err)
	assert.Equal(t, "00 00 06 04", pan)
	assert.Equal(t, "0f 0f 0c 0e", tilt)
}

func TestParseZoomReply(t *testing.T) {
	reply := []byte{0x90, 0x50, 0x00, 0x01, 0x0f, 0x04, 0xff}

	zoom, err := ParseZoomReply(reply)
	require.NoError(t, err)
	assert.Equal(t, "00 01 0f 04", zoom)
}

func TestParseReplyErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
	}{
		{"empty", nil},
		{"truncated", []byte{0x90, 0x50, 0x00, 0x00, 0xff}},
		{"wrong header", []byte{0x12, 0x34, 0x00, 0x00, 0x06, 0x04, 0x0f, 0x0f, 0x0c, 0x0e, 0xff}},
		{"error reply", []byte{0x90, 0x60, 0x02, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParsePanTiltReply(tt.reply)
			assert.Error(t, err)
		})
	}
}
