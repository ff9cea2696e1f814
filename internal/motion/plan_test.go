package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlanStepCount(t *testing.T) {
	start := mustPosition(t, 0, 0, 0)
	end := mustPosition(t, 1000, 1000, 1000)

	plan, err := NewPlan(start, end, 2.0, StepsPerSecond)
	require.NoError(t, err)

	// floor(2.0 * 10) = 20 gaps, steps 0..20 inclusive.
	assert.Len(t, plan.Steps, 21)
	assert.Equal(t, 100*time.Millisecond, plan.Delay)
	assert.Equal(t, 2*time.Second, plan.TotalDuration())

	assert.True(t, plan.Steps[0].Position.Equal(start))
	assert.True(t, plan.Steps[len(plan.Steps)-1].Position.Equal(end))
}

func TestNewPlanShortDuration(t *testing.T) {
	start := mustPosition(t, 100, -50, 0)
	end := mustPosition(t, 200, 50, 500)

	for _, seconds := range []float64{0, 0.01, 0.099} {
		plan, err := NewPlan(start, end, seconds, StepsPerSecond)
		require.NoError(t, err, "duration %g", seconds)

		// Below one step's resolution the plan is a single jump to the
		// end, never a division by zero.
		require.Len(t, plan.Steps, 1, "duration %g", seconds)
		assert.True(t, plan.Steps[0].Position.Equal(end))
	}
}

func TestNewPlanInvalidParameters(t *testing.T) {
	start := mustPosition(t, 0, 0, 0)
	end := mustPosition(t, 1, 1, 1)

	_, err := NewPlan(start, end, -1, StepsPerSecond)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewPlan(start, end, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewPlan(start, end, 1, -10)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNewPlanScenario(t *testing.T) {
	start := mustPosition(t, 100, -50, 0)
	end := mustPosition(t, 200, 50, 500)

	plan, err := NewPlan(start, end, 1.0, StepsPerSecond)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 11)

	// Halfway through the run the camera is at the midpoint.
	pan, tilt, zoom, err := plan.Steps[5].Position.Values()
	require.NoError(t, err)
	assert.Equal(t, 150, pan)
	assert.Equal(t, 0, tilt)
	assert.Equal(t, 250, zoom)

	// Linear interpolation: one speed pair for the whole run.
	for i, step := range plan.Steps {
		assert.Equal(t, plan.Steps[0].PanSpeed, step.PanSpeed, "step %d", i)
		assert.Equal(t, plan.Steps[0].TiltSpeed, step.TiltSpeed, "step %d", i)
	}

	// 100 units over 10 steps is 10 per step: (10/10)*24*2-24 = 24.
	assert.Equal(t, 24, plan.Steps[0].PanSpeed)
	assert.Equal(t, 24, plan.Steps[0].TiltSpeed)
}

func TestNewPlanSpeedMapping(t *testing.T) {
	// Zero distance maps to the slowest setting.
	same := mustPosition(t, 42, 42, 0)
	plan, err := NewPlan(same, same, 1.0, StepsPerSecond)
	require.NoError(t, err)
	assert.Equal(t, -24, plan.Steps[0].PanSpeed)
	assert.Equal(t, -24, plan.Steps[0].TiltSpeed)

	// A huge sweep saturates at the envelope maximum instead of
	// escaping it.
	start := mustPosition(t, -32768, 0, 0)
	end := mustPosition(t, 32767, 0, 0)
	plan, err = NewPlan(start, end, 0.5, StepsPerSecond)
	require.NoError(t, err)
	assert.Equal(t, 24, plan.Steps[0].PanSpeed)
	assert.Equal(t, -24, plan.Steps[0].TiltSpeed)
}

func TestPlanPacing(t *testing.T) {
	start := mustPosition(t, 0, 0, 0)
	end := mustPosition(t, 100, 100, 100)

	for _, seconds := range []float64{0.5, 1.0, 2.0, 3.7} {
		plan, err := NewPlan(start, end, seconds, StepsPerSecond)
		require.NoError(t, err)

		gaps := len(plan.Steps) - 1
		assert.Equal(t, time.Duration(gaps)*plan.Delay, plan.TotalDuration(), "duration %g", seconds)

		want := float64(gaps) / float64(StepsPerSecond)
		assert.InDelta(t, want, plan.TotalDuration().Seconds(), 1e-9, "duration %g", seconds)
	}
}
