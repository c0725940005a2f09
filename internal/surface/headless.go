// internal/surface/headless.go
package surface

import (
	"strconv"
	"sync"

	"github.com/xkilldash9x/scrolllab/internal/scroll"
)

// Headless is an in-memory surface with fixed geometry. It records what the
// controller rendered so simulations and replays can be inspected.
type Headless struct {
	mu            sync.Mutex
	rect          scroll.Rect
	contentHeight float64
	offset        float64
	marker        MarkerState
	writes        int
}

// MarkerState is the marker box as last positioned on a surface.
type MarkerState struct {
	Visible bool    `json:"visible"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
}

var _ scroll.Surface = (*Headless)(nil)

// NewHeadless creates a surface for a container at rect over content of the given height.
func NewHeadless(rect scroll.Rect, contentHeight float64) *Headless {
	return &Headless{rect: rect, contentHeight: contentHeight}
}

// ContainerRect implements scroll.Surface.
func (h *Headless) ContainerRect() scroll.Rect {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rect
}

// ContentHeight implements scroll.Surface.
func (h *Headless) ContentHeight() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.contentHeight
}

// ApplyOffset implements scroll.Surface.
func (h *Headless) ApplyOffset(offset float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offset = offset
	h.writes++
}

// ShowMarker implements scroll.Surface.
func (h *Headless) ShowMarker(left, top float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marker = MarkerState{Visible: true, Left: left, Top: top}
}

// HideMarker implements scroll.Surface.
func (h *Headless) HideMarker() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marker.Visible = false
}

// Resize changes the geometry, as a layout change would.
func (h *Headless) Resize(rect scroll.Rect, contentHeight float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rect = rect
	h.contentHeight = contentHeight
}

// Offset returns the last rendered offset.
func (h *Headless) Offset() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offset
}

// Marker returns the last marker placement.
func (h *Headless) Marker() MarkerState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.marker
}

// Writes returns how many times the transform was written.
func (h *Headless) Writes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writes
}

// Transform returns the CSS transform for the current offset.
func (h *Headless) Transform() string {
	return Transform(h.Offset())
}

// Transform renders the CSS transform that shows content scrolled by offset.
func Transform(offset float64) string {
	if offset == 0 {
		return "translateY(0px)"
	}
	return "translateY(" + strconv.FormatFloat(-offset, 'f', -1, 64) + "px)"
}
