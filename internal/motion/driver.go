package motion

import (
	"context"
	"log"
	"time"

	"cam-animator/internal/visca"
)

// Mover is the command side of an animation: something that can be told
// to go to an absolute position at given axis speeds. *visca.Controller
// satisfies it; tests use fakes.
type Mover interface {
	MoveTo(ctx context.Context, pos visca.Position, panSpeed, tiltSpeed int) error
}

// Driver plays a Plan against a Mover with wall-clock pacing. Each
// Driver owns exactly one run at a time; drive separate cameras with
// separate Drivers.
type Driver struct {
	mover Mover

	// Progress, when set, is called after each step is issued.
	Progress func(step, total int)

	// Logf receives per-step failure reports. Defaults to log.Printf.
	Logf func(format string, v ...any)
}

// NewDriver creates a driver for the given mover.
func NewDriver(m Mover) *Driver {
	return &Driver{mover: m, Logf: log.Printf}
}

// Run issues every step of the plan in order, sleeping the plan's delay
// between consecutive steps.
//
// A step that fails to transmit is reported and skipped, and the run
// continues: aborting mid-animation strands the camera at an undefined
// intermediate position, which is worse than finishing the sweep with a
// dropped frame. That is the deliberate default, not configurable.
//
// Cancellation is honored between steps only, so the pan/tilt and zoom
// messages of a single step are never split across the boundary.
func (d *Driver) Run(ctx context.Context, plan *Plan) error {
	total := len(plan.Steps)
	for i, step := range plan.Steps {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timeAfter(plan.Delay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := d.mover.MoveTo(ctx, step.Position, step.PanSpeed, step.TiltSpeed); err != nil {
			d.logf("animation step %d/%d failed: %v", i, total-1, err)
		}
		if d.Progress != nil {
			d.Progress(i, total)
		}
	}
	return nil
}

func (d *Driver) logf(format string, v ...any) {
	if d.Logf != nil {
		d.Logf(format, v...)
	}
}

// timeAfter is swappable so tests do not sleep.
var timeAfter = time.After
