// Package motion turns a start/end position pair into a timed stream of
// intermediate moves that a camera renders as one smooth sweep.
package motion

import (
	"fmt"

	"cam-animator/internal/visca"
)

// PointAt computes the position a fraction t of the way from start to
// end, per axis, with linear interpolation. Intermediate values are
// truncated toward zero before re-encoding. t=0 yields start and t=1
// yields end exactly.
func PointAt(start, end visca.Position, t float64) (visca.Position, error) {
	sp, st, sz, err := start.Values()
	if err != nil {
		return visca.Position{}, fmt.Errorf("start: %w", err)
	}
	ep, et, ez, err := end.Values()
	if err != nil {
		return visca.Position{}, fmt.Errorf("end: %w", err)
	}

	return visca.NewPosition(
		lerp(sp, ep, t),
		lerp(st, et, t),
		lerp(sz, ez, t),
	)
}

func lerp(start, end int, t float64) int {
	// Conversion truncates toward zero, matching the device's nibble
	// resolution rather than rounding.
	return int(float64(start) + float64(end-start)*t)
}
