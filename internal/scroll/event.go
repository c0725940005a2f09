// internal/scroll/event.go
package scroll

// EventKind names an interaction milestone reported to observers.
type EventKind string

const (
	EventPress       EventKind = "press"
	EventRelease     EventKind = "release"
	EventFlick       EventKind = "flick"
	EventInertiaStop EventKind = "inertia-stop"
	EventReset       EventKind = "reset"
	EventTeardown    EventKind = "teardown"
	EventTechnique   EventKind = "technique"
)

// StopReason records why a kinetic phase ended.
type StopReason string

const (
	StopDecay        StopReason = "decay"
	StopEdgeLine     StopReason = "edge-line"
	StopEdgeCrossing StopReason = "edge-crossing"
	StopScrollBound  StopReason = "scroll-bound"
	StopCancelled    StopReason = "cancelled"
)

// Event is emitted on gesture boundaries, never per frame.
type Event struct {
	Kind         EventKind     `json:"kind"`
	Technique    Technique     `json:"technique"`
	TimeMs       float64       `json:"t"`
	Offset       float64       `json:"offset"`
	Velocity     float64       `json:"velocity"`
	BreakContact *BreakContact `json:"breakContact,omitempty"`
	Reason       StopReason    `json:"reason,omitempty"`
}

// Observer receives controller events synchronously on the controller's goroutine.
type Observer func(Event)
