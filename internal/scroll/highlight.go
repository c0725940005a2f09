// internal/scroll/highlight.go
package scroll

// ShowHighlight pins the marker over a document point at the current offset.
func (c *Controller) ShowHighlight(docX, docY float64) {
	if !finite(docX) || !finite(docY) {
		return
	}
	r := c.surface.ContainerRect()
	winY := docY - c.state.ContentOffset + r.Top
	winX := docX + r.Left
	rad := c.tuning.MarkerRadius
	c.marker = Marker{
		Visible: true,
		Left:    winX - r.Left - rad,
		Top:     winY - r.Top - rad,
		WindowX: winX,
		WindowY: winY,
	}
	c.surface.ShowMarker(c.marker.Left, c.marker.Top)
}

// HideHighlight hides the marker if it is shown.
func (c *Controller) HideHighlight() {
	if !c.marker.Visible {
		return
	}
	c.marker.Visible = false
	c.surface.HideMarker()
}
