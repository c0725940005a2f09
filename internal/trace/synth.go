// internal/trace/synth.go
package trace

import (
	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// Drag builds a press at (x, y), one move per delta spaced stepMs apart, and
// a release stepMs after the last move.
func Drag(x, y float64, deltas []float64, stepMs, start float64) []schemas.PointerEvent {
	events := make([]schemas.PointerEvent, 0, len(deltas)+2)
	t := start
	events = append(events, schemas.PointerEvent{Type: schemas.PointerDown, X: x, Y: y, TimeMs: t})
	for _, d := range deltas {
		y += d
		t += stepMs
		events = append(events, schemas.PointerEvent{Type: schemas.PointerMove, X: x, Y: y, TimeMs: t})
	}
	t += stepMs
	events = append(events, schemas.PointerEvent{Type: schemas.PointerUp, X: x, Y: y, TimeMs: t})
	return events
}

// Flick builds a fast swipe covering distance pixels (negative is upward) in
// durationMs across steps moves, released on the final move's timestamp.
func Flick(x, y, distance, durationMs float64, steps int, start float64) []schemas.PointerEvent {
	if steps < 1 {
		steps = 1
	}
	stepMs := durationMs / float64(steps)
	stepDy := distance / float64(steps)
	events := make([]schemas.PointerEvent, 0, steps+2)
	t := start
	events = append(events, schemas.PointerEvent{Type: schemas.PointerDown, X: x, Y: y, TimeMs: t})
	for i := 0; i < steps; i++ {
		y += stepDy
		t += stepMs
		events = append(events, schemas.PointerEvent{Type: schemas.PointerMove, X: x, Y: y, TimeMs: t})
	}
	events = append(events, schemas.PointerEvent{Type: schemas.PointerUp, X: x, Y: y, TimeMs: t})
	return events
}

// Shift offsets every timestamp by dt.
func Shift(events []schemas.PointerEvent, dt float64) []schemas.PointerEvent {
	out := make([]schemas.PointerEvent, len(events))
	for i, ev := range events {
		ev.TimeMs += dt
		out[i] = ev
	}
	return out
}

// Concat joins gesture sequences.
func Concat(parts ...[]schemas.PointerEvent) []schemas.PointerEvent {
	var out []schemas.PointerEvent
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
