package visca

import "fmt"

// Position is a full pan/tilt/zoom location held in the protocol's
// encoded form. The encoded strings are the canonical representation:
// they are what gets persisted and what equality is defined over, so a
// position read back from a device compares cleanly against one
// produced by interpolation.
type Position struct {
	Pan  string `json:"pan"`
	Tilt string `json:"tilt"`
	Zoom string `json:"zoom"`
}

// NewPosition builds a Position from decoded axis values.
func NewPosition(pan, tilt, zoom int) (Position, error) {
	p, err := EncodeAxis(pan)
	if err != nil {
		return Position{}, fmt.Errorf("pan: %w", err)
	}
	t, err := EncodeAxis(tilt)
	if err != nil {
		return Position{}, fmt.Errorf("tilt: %w", err)
	}
	z, err := EncodeAxis(zoom)
	if err != nil {
		return Position{}, fmt.Errorf("zoom: %w", err)
	}
	return Position{Pan: p, Tilt: t, Zoom: z}, nil
}

// PositionFromEncoded builds a Position from raw protocol digit strings,
// as returned by a device query or read from storage. Each axis is
// round-tripped through the codec, which both validates it and
// normalizes the separator layout.
func PositionFromEncoded(pan, tilt, zoom string) (Position, error) {
	pv, err := DecodeAxis(pan)
	if err != nil {
		return Position{}, fmt.Errorf("pan: %w", err)
	}
	tv, err := DecodeAxis(tilt)
	if err != nil {
		return Position{}, fmt.Errorf("tilt: %w", err)
	}
	zv, err := DecodeAxis(zoom)
	if err != nil {
		return Position{}, fmt.Errorf("zoom: %w", err)
	}
	return NewPosition(pv, tv, zv)
}

// Values decodes all three axes.
func (p Position) Values() (pan, tilt, zoom int, err error) {
	if pan, err = DecodeAxis(p.Pan); err != nil {
		return 0, 0, 0, fmt.Errorf("pan: %w", err)
	}
	if tilt, err = DecodeAxis(p.Tilt); err != nil {
		return 0, 0, 0, fmt.Errorf("tilt: %w", err)
	}
	if zoom, err = DecodeAxis(p.Zoom); err != nil {
		return 0, 0, 0, fmt.Errorf("zoom: %w", err)
	}
	return pan, tilt, zoom, nil
}

// Equal compares the canonical encoded forms.
func (p Position) Equal(other Position) bool {
	return p.Pan == other.Pan && p.Tilt == other.Tilt && p.Zoom == other.Zoom
}

func (p Position) String() string {
	pan, tilt, zoom, err := p.Values()
	if err != nil {
		return fmt.Sprintf("position{pan=%q tilt=%q zoom=%q}", p.Pan, p.Tilt, p.Zoom)
	}
	return fmt.Sprintf("position{pan=%d tilt=%d zoom=%d}", pan, tilt, zoom)
}
