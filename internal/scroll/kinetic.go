// internal/scroll/kinetic.go
package scroll

import (
	"math"

	"go.uber.org/zap"
)

// frameEpsilon absorbs float noise when comparing a clamped step to its target.
const frameEpsilon = 1e-9

// Frame advances the kinetic phase to now and reports whether it is still running.
func (c *Controller) Frame(now float64) bool {
	if !c.Inertial() {
		return false
	}
	if !finite(now) {
		return true
	}
	dt := math.Max(0, math.Min(now-c.state.LastTimestamp, c.tuning.MaxFrameDeltaMs))
	c.state.LastTimestamp = now
	c.state.Velocity *= math.Exp(-dt / c.tuning.DecayTauMs)
	v := c.state.Velocity

	if c.policy.LimitsDistance && c.state.BreakContact != nil {
		if reason, stopped := c.limitedStep(v, dt); stopped {
			c.stop(now, reason)
			return false
		}
	} else {
		c.freeStep(v, dt)
	}

	if math.Abs(v) < c.tuning.StopVelocity {
		c.stop(now, StopDecay)
		return false
	}
	return c.Inertial()
}

// freeStep moves the content by one frame. It stops the phase itself when
// the clamp cut the step short.
func (c *Controller) freeStep(v, dt float64) {
	target := c.state.ContentOffset - v*dt
	applied := c.SetOffset(target)
	c.trackHighlight()
	if c.policy.StopsAtBounds && c.tuning.StopAtScrollBounds && math.Abs(applied-target) > frameEpsilon && math.Abs(v) >= c.tuning.StopVelocity {
		c.stop(c.state.LastTimestamp, StopScrollBound)
	}
}

// limitedStep keeps the break-contact point between the edge lines.
func (c *Controller) limitedStep(v, dt float64) (StopReason, bool) {
	r := c.surface.ContainerRect()
	topLine := r.Top + c.tuning.EdgeMargin
	bottomLine := r.Bottom() - c.tuning.EdgeMargin
	docY := c.state.BreakContact.DocumentY

	cur := c.state.ContentOffset
	next := cur - v*dt
	trackedNow := docY - cur + r.Top
	trackedNext := docY - next + r.Top

	switch {
	case v <= 0 && trackedNow <= topLine:
		c.SetOffset(docY + r.Top - topLine)
		c.trackHighlight()
		return StopEdgeLine, true
	case v >= 0 && trackedNow >= bottomLine:
		c.SetOffset(docY + r.Top - bottomLine)
		c.trackHighlight()
		return StopEdgeLine, true
	case v < 0 && trackedNext < topLine:
		c.crossTo(topLine, trackedNow, trackedNext, cur, v, dt)
		return StopEdgeCrossing, true
	case v > 0 && trackedNext > bottomLine:
		c.crossTo(bottomLine, trackedNow, trackedNext, cur, v, dt)
		return StopEdgeCrossing, true
	}

	c.freeStep(v, dt)
	return "", false
}

// crossTo applies the fraction of the step that lands the tracked point on line.
func (c *Controller) crossTo(line, trackedNow, trackedNext, cur, v, dt float64) {
	alpha := 1.0
	if span := trackedNext - trackedNow; span != 0 {
		alpha = (line - trackedNow) / span
	}
	c.SetOffset(cur - v*dt*alpha)
	c.trackHighlight()
}

func (c *Controller) trackHighlight() {
	if c.policy.ShowsHighlight && c.state.BreakContact != nil {
		c.ShowHighlight(c.state.BreakContact.DocumentX, c.state.BreakContact.DocumentY)
	}
}

func (c *Controller) stop(now float64, reason StopReason) {
	in := c.state.Inertia
	if in == nil || !in.Active {
		return
	}
	in.Active = false
	in.StoppedAt = now
	in.StopReason = reason
	c.HideHighlight()
	c.debug("inertia stopped",
		zap.String("reason", string(reason)),
		zap.Float64("offset", c.state.ContentOffset),
		zap.Float64("velocity", c.state.Velocity))
	c.emit(Event{
		Kind:         EventInertiaStop,
		TimeMs:       now,
		Offset:       c.state.ContentOffset,
		Velocity:     c.state.Velocity,
		BreakContact: c.state.BreakContact,
		Reason:       reason,
	})
}
