// internal/scroll/types.go
package scroll

import (
	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// Rect is an axis-aligned box in window (client) coordinates, CSS pixels.
type Rect struct {
	Left   float64 `json:"left" yaml:"left" mapstructure:"left"`
	Top    float64 `json:"top" yaml:"top" mapstructure:"top"`
	Width  float64 `json:"width" yaml:"width" mapstructure:"width"`
	Height float64 `json:"height" yaml:"height" mapstructure:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Surface is the presentation boundary of a scroll region. The controller
// measures geometry through it on every use and pushes visual state back.
type Surface interface {
	// ContainerRect returns the visible viewport in window coordinates.
	ContainerRect() Rect
	// ContentHeight returns the full height of the scrollable content.
	ContentHeight() float64
	// ApplyOffset renders the content translated up by offset pixels.
	ApplyOffset(offset float64)
	// ShowMarker places the highlight marker box at a container-local top-left corner.
	ShowMarker(left, top float64)
	// HideMarker removes the highlight marker.
	HideMarker()
}

// Remeasurer is implemented by surfaces that cache their geometry, such as a
// live page. The controller calls Remeasure before each press and reset so
// clamping and edge lines follow reflows between gestures.
type Remeasurer interface {
	Remeasure()
}

// BreakContact is the point under the pointer at the instant a flick was released.
type BreakContact struct {
	WindowX   float64 `json:"windowX"`
	WindowY   float64 `json:"windowY"`
	DocumentX float64 `json:"documentX"`
	DocumentY float64 `json:"documentY"`
}

// Inertia describes a kinetic phase. After a natural stop the record is kept
// with Active false so the stop can still be inspected.
type Inertia struct {
	Active          bool       `json:"active"`
	InitialVelocity float64    `json:"initialVelocity"`
	StartedAt       float64    `json:"startedAt"`
	StoppedAt       float64    `json:"stoppedAt,omitempty"`
	StopReason      StopReason `json:"stopReason,omitempty"`
}

// State is the mutable interaction state owned by a single Controller.
type State struct {
	Dragging      bool          `json:"dragging"`
	LastPointerY  float64       `json:"lastPointerY"`
	LastTimestamp float64       `json:"lastTimestamp"`
	ContentOffset float64       `json:"contentOffset"`
	Velocity      float64       `json:"velocity"`
	BreakContact  *BreakContact `json:"breakContact,omitempty"`
	Inertia       *Inertia      `json:"inertia,omitempty"`
}

// clone returns a deep copy so snapshots never alias controller state.
func (s State) clone() State {
	out := s
	if s.BreakContact != nil {
		bc := *s.BreakContact
		out.BreakContact = &bc
	}
	if s.Inertia != nil {
		in := *s.Inertia
		out.Inertia = &in
	}
	return out
}

// Marker is the last highlight placement pushed to the surface.
type Marker struct {
	Visible bool    `json:"visible"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	WindowX float64 `json:"windowX"`
	WindowY float64 `json:"windowY"`
}

// Snapshot is a value copy of everything observable about a controller.
type Snapshot struct {
	Technique     Technique              `json:"technique"`
	Settings      schemas.ScrollSettings `json:"settings"`
	State         State                  `json:"state"`
	Marker        Marker                 `json:"marker"`
	MaxScrollable float64                `json:"maxScrollable"`
}
