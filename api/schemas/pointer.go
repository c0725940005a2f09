// api/schemas/pointer.go
package schemas

// -- Pointer Input Schemas --

// PointerType defines the phase of a pointer event.
type PointerType string

const (
	PointerDown   PointerType = "down"
	PointerMove   PointerType = "move"
	PointerUp     PointerType = "up"
	PointerCancel PointerType = "cancel"
)

// Valid reports whether the pointer type is one the engine understands.
func (p PointerType) Valid() bool {
	switch p {
	case PointerDown, PointerMove, PointerUp, PointerCancel:
		return true
	}
	return false
}

// PointerEvent encapsulates a single touch or mouse sample.
// X and Y are client (window) coordinates in CSS pixels. TimeMs is measured on the
// engine clock; a zero value asks the engine loop to stamp the event on arrival.
type PointerEvent struct {
	Type   PointerType `json:"type"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	TimeMs float64     `json:"t"`
}
