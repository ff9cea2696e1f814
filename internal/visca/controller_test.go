package visca

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records outgoing frames and plays back canned replies.
type fakeTransport struct {
	sent    [][]byte
	replies [][]byte
	err     error
}

func (f *fakeTransport) Send(_ context.Context, payload []byte) ([]byte, error) {
	f.sent = append(f.sent, append([]byte(nil), payload...))
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return []byte{0x90, 0x41, 0xff}, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeTransport) Close() error { return nil }

func TestQueryPosition(t *testing.T) {
	ft := &fakeTransport{
		replies: [][]byte{
			{0x90, 0x50, 0x00, 0x00, 0x06, 0x04, 0x0f, 0x0f, 0x0c, 0x0e, 0xff},
			{0x90, 0x50, 0x00, 0x01, 0x0f, 0x04, 0xff},
		},
	}
	c := NewController(ft)

	pos, err := c.QueryPosition(context.Background())
	require.NoError(t, err)

	pan, tilt, zoom, err := pos.Values()
	require.NoError(t, err)
	assert.Equal(t, 100, pan)
	assert.Equal(t, -50, tilt)
	assert.Equal(t, 500, zoom)

	require.Len(t, ft.sent, 2)
	assert.Equal(t, []byte{0x81, 0x09, 0x06, 0x12, 0xff}, ft.sent[0])
	assert.Equal(t, []byte{0x81, 0x09, 0x04, 0x47, 0xff}, ft.sent[1])
}

func TestMoveToMessageOrder(t *testing.T) {
	ft := &fakeTransport{}
	c := NewController(ft)

	pos, err := NewPosition(100, -50, 500)
	require.NoError(t, err)
	require.NoError(t, c.MoveTo(context.Background(), pos, 24, 24))

	// One logical move, two messages: pan/tilt always before zoom.
	require.Len(t, ft.sent, 2)
	assert.Equal(t, []byte{0x81, 0x01, 0x06, 0x02}, ft.sent[0][:4])
	assert.Equal(t, []byte{0x81, 0x01, 0x04, 0x47}, ft.sent[1][:4])
	assert.Equal(t, byte(0xff), ft.sent[0][len(ft.sent[0])-1])
	assert.Equal(t, byte(0xff), ft.sent[1][len(ft.sent[1])-1])
}

func TestMoveToRejectsSpeedBeforeSending(t *testing.T) {
	ft := &fakeTransport{}
	c := NewController(ft)

	pos, err := NewPosition(0, 0, 0)
	require.NoError(t, err)

	err = c.MoveTo(context.Background(), pos, 25, 0)
	var rerr *RangeError
	require.ErrorAs(t, err, &rerr)
	assert.Empty(t, ft.sent, "nothing may hit the wire on a range error")
}

func TestMoveToTransportError(t *testing.T) {
	wantErr := errors.New("camera unplugged")
	ft := &fakeTransport{err: wantErr}
	c := NewController(ft)

	pos, err := NewPosition(0, 0, 0)
	require.NoError(t, err)

	err = c.MoveTo(context.Background(), pos, 0, 0)
	require.ErrorIs(t, err, wantErr)
}

func TestHome(t *testing.T) {
	ft := &fakeTransport{}
	c := NewController(ft)

	require.NoError(t, c.Home(context.Background()))
	require.Len(t, ft.sent, 1)
	assert.Equal(t, []byte{0x81, 0x01, 0x06, 0x04, 0xff}, ft.sent[0])
}
