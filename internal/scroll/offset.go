// internal/scroll/offset.go
package scroll

import "math"

// MaxScrollable is the largest offset the content can take, measured live.
func (c *Controller) MaxScrollable() float64 {
	h := c.surface.ContentHeight()
	r := c.surface.ContainerRect()
	if !finite(h) || !finite(r.Height) {
		return 0
	}
	return math.Max(0, h-r.Height)
}

// SetOffset clamps y into [0, MaxScrollable], stores it and renders it.
// Non-finite input leaves the offset unchanged. The applied offset is returned.
func (c *Controller) SetOffset(y float64) float64 {
	if !finite(y) {
		return c.state.ContentOffset
	}
	clamped := math.Min(c.MaxScrollable(), math.Max(0, y))
	c.state.ContentOffset = clamped
	c.surface.ApplyOffset(clamped)
	return clamped
}

// AddOffsetDelta moves the content by dy scaled by the drag gain.
func (c *Controller) AddOffsetDelta(dy float64) float64 {
	return c.SetOffset(c.state.ContentOffset + dy*c.settings.DragGain)
}
