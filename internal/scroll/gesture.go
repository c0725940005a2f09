// internal/scroll/gesture.go
package scroll

import (
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// PointerDown starts a drag. Any running kinetic phase is cancelled.
// The return value tells the caller to suppress native scrolling.
func (c *Controller) PointerDown(ev schemas.PointerEvent) bool {
	if !finite(ev.Y) || !finite(ev.TimeMs) {
		return false
	}
	c.remeasure()
	if c.Inertial() {
		c.emit(Event{
			Kind:     EventInertiaStop,
			TimeMs:   ev.TimeMs,
			Offset:   c.state.ContentOffset,
			Velocity: c.state.Velocity,
			Reason:   StopCancelled,
		})
	}
	c.state.Dragging = true
	c.state.LastPointerY = ev.Y
	c.state.LastTimestamp = ev.TimeMs
	c.state.Velocity = 0
	c.state.Inertia = nil
	c.state.BreakContact = nil
	c.HideHighlight()
	c.emit(Event{Kind: EventPress, TimeMs: ev.TimeMs, Offset: c.state.ContentOffset})
	return true
}

// PointerMove follows the finger while dragging.
func (c *Controller) PointerMove(ev schemas.PointerEvent) bool {
	if !c.state.Dragging || !finite(ev.Y) || !finite(ev.TimeMs) {
		return false
	}
	dy := ev.Y - c.state.LastPointerY
	dt := math.Min(ev.TimeMs-c.state.LastTimestamp, c.tuning.MaxFrameDeltaMs)
	if dt > 0 {
		c.state.Velocity = dy / dt
	} else {
		c.state.Velocity = 0
	}
	c.AddOffsetDelta(-dy)
	c.state.LastPointerY = ev.Y
	c.state.LastTimestamp = ev.TimeMs
	return true
}

// PointerUp ends the drag and starts a kinetic phase if the release was a flick.
func (c *Controller) PointerUp(ev schemas.PointerEvent) bool {
	if !c.state.Dragging || !finite(ev.TimeMs) {
		c.state.Dragging = false
		return false
	}
	c.state.Dragging = false

	interval := ev.TimeMs - c.state.LastTimestamp
	v := c.state.Velocity
	if !c.isFlick(v, interval) {
		c.state.Inertia = nil
		c.HideHighlight()
		c.emit(Event{Kind: EventRelease, TimeMs: ev.TimeMs, Offset: c.state.ContentOffset, Velocity: v})
		return true
	}

	v *= c.settings.InertiaGain
	c.state.Velocity = v
	c.state.Inertia = &Inertia{Active: true, InitialVelocity: v, StartedAt: ev.TimeMs}
	c.state.LastTimestamp = ev.TimeMs

	if finite(ev.X) && finite(ev.Y) {
		r := c.surface.ContainerRect()
		c.state.BreakContact = &BreakContact{
			WindowX:   ev.X,
			WindowY:   ev.Y,
			DocumentX: ev.X - r.Left,
			DocumentY: c.state.ContentOffset + (ev.Y - r.Top),
		}
	}
	if c.policy.ShowsHighlight && c.state.BreakContact != nil {
		c.ShowHighlight(c.state.BreakContact.DocumentX, c.state.BreakContact.DocumentY)
	} else {
		c.HideHighlight()
	}

	c.debug("flick",
		zap.Float64("velocity", v),
		zap.Float64("interval_ms", interval),
		zap.Float64("offset", c.state.ContentOffset))
	c.emit(Event{
		Kind:         EventFlick,
		TimeMs:       ev.TimeMs,
		Offset:       c.state.ContentOffset,
		Velocity:     v,
		BreakContact: c.state.BreakContact,
	})
	return true
}

// PointerCancel ends the drag without a kinetic phase.
func (c *Controller) PointerCancel(ev schemas.PointerEvent) bool {
	if !c.state.Dragging {
		return false
	}
	c.state.Dragging = false
	c.state.Inertia = nil
	c.HideHighlight()
	c.emit(Event{Kind: EventRelease, TimeMs: ev.TimeMs, Offset: c.state.ContentOffset, Velocity: c.state.Velocity})
	return true
}

// isFlick applies both thresholds strictly: a release exactly at the minimum
// velocity or exactly at the maximum interval is not a flick.
func (c *Controller) isFlick(v, interval float64) bool {
	return math.Abs(v) > c.tuning.FlickMinVelocity && interval < c.tuning.FlickMaxIntervalMs
}
