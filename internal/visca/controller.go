package visca

import (
	"context"
	"fmt"

	"cam-animator/internal/transport"
)

// Controller drives a single pre-addressed VISCA camera over a
// pluggable transport. It owns the address/terminator framing; command
// payloads come from the builders in this package.
type Controller struct {
	transport transport.Transport
	addr      int // camera address on the bus (1-7)
}

// NewController wraps a transport. The camera address defaults to 1,
// which is what every VISCA-over-IP device answers to.
func NewController(t transport.Transport) *Controller {
	return &Controller{transport: t, addr: 1}
}

// Close closes the underlying transport.
func (c *Controller) Close() error {
	return c.transport.Close()
}

// send frames a payload with the address byte and terminator and
// delivers it.
func (c *Controller) send(ctx context.Context, payload []byte) ([]byte, error) {
	msg := make([]byte, 0, len(payload)+2)
	msg = append(msg, byte(0x80|c.addr))
	msg = append(msg, payload...)
	msg = append(msg, 0xFF)
	return c.transport.Send(ctx, msg)
}

// QueryPosition reads the camera's current pan/tilt/zoom. The two
// inquiries are independent messages; their replies are parsed at fixed
// offsets.
func (c *Controller) QueryPosition(ctx context.Context) (Position, error) {
	reply, err := c.send(ctx, InquirePanTilt())
	if err != nil {
		return Position{}, fmt.Errorf("pan/tilt inquiry: %w", err)
	}
	pan, tilt, err := ParsePanTiltReply(reply)
	if err != nil {
		return Position{}, fmt.Errorf("pan/tilt inquiry: %w", err)
	}

	reply, err = c.send(ctx, InquireZoom())
	if err != nil {
		return Position{}, fmt.Errorf("zoom inquiry: %w", err)
	}
	zoom, err := ParseZoomReply(reply)
	if err != nil {
		return Position{}, fmt.Errorf("zoom inquiry: %w", err)
	}

	return PositionFromEncoded(pan, tilt, zoom)
}

// MoveTo commands an absolute move. One logical operation, two wire
// messages: pan/tilt first, then zoom, always in that order. The
// transport does not make the pair atomic; a crash between the two can
// leave zoom trailing one step behind, which the per-step cadence of an
// animation papers over.
func (c *Controller) MoveTo(ctx context.Context, pos Position, panSpeed, tiltSpeed int) error {
	move, err := AbsoluteMove(pos, panSpeed, tiltSpeed)
	if err != nil {
		return err
	}
	zoom, err := ZoomMove(pos)
	if err != nil {
		return err
	}

	if _, err := c.send(ctx, move); err != nil {
		return fmt.Errorf("pan/tilt move: %w", err)
	}
	if _, err := c.send(ctx, zoom); err != nil {
		return fmt.Errorf("zoom move: %w", err)
	}
	return nil
}

// Home returns the pan/tilt head to its home position.
func (c *Controller) Home(ctx context.Context) error {
	if _, err := c.send(ctx, PanTiltHome()); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	return nil
}
