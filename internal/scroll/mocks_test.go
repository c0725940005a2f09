// internal/scroll/mocks_test.go
package scroll

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// fakeSurface is an in-memory Surface that records what the controller pushed to it.
type fakeSurface struct {
	rect          Rect
	contentHeight float64

	offset      float64
	applyCalls  int
	markerShown bool
	markerLeft  float64
	markerTop   float64
	showCalls   int
	hideCalls   int
}

func newFakeSurface(rect Rect, contentHeight float64) *fakeSurface {
	return &fakeSurface{rect: rect, contentHeight: contentHeight}
}

func (f *fakeSurface) ContainerRect() Rect     { return f.rect }
func (f *fakeSurface) ContentHeight() float64  { return f.contentHeight }
func (f *fakeSurface) ApplyOffset(off float64) { f.offset = off; f.applyCalls++ }
func (f *fakeSurface) ShowMarker(left, top float64) {
	f.markerShown = true
	f.markerLeft, f.markerTop = left, top
	f.showCalls++
}
func (f *fakeSurface) HideMarker() { f.markerShown = false; f.hideCalls++ }

// eventLog collects controller events.
type eventLog struct{ events []Event }

func (l *eventLog) observe(ev Event) { l.events = append(l.events, ev) }

func (l *eventLog) kinds() []EventKind {
	out := make([]EventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (l *eventLog) last(kind EventKind) (Event, bool) {
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == kind {
			return l.events[i], true
		}
	}
	return Event{}, false
}

// reflowSurface only picks up a new content height when asked to remeasure.
type reflowSurface struct {
	*fakeSurface
	pending    float64
	remeasures int
}

func (r *reflowSurface) Remeasure() {
	r.remeasures++
	if r.pending > 0 {
		r.contentHeight = r.pending
	}
}

// Standard phone-sized container used across the tests.
var phoneRect = Rect{Left: 0, Top: 0, Width: 390, Height: 600}

func setupControllerTest(t *testing.T, technique Technique, rect Rect, contentHeight float64) (*Controller, *fakeSurface, *eventLog) {
	t.Helper()
	surf := newFakeSurface(rect, contentHeight)
	log := &eventLog{}
	c := NewController(surf, technique, schemas.DefaultScrollSettings(), DefaultTuning(), WithObserver(log.observe))
	require.NotNil(t, c)
	return c, surf, log
}

func down(x, y, t float64) schemas.PointerEvent {
	return schemas.PointerEvent{Type: schemas.PointerDown, X: x, Y: y, TimeMs: t}
}

func move(x, y, t float64) schemas.PointerEvent {
	return schemas.PointerEvent{Type: schemas.PointerMove, X: x, Y: y, TimeMs: t}
}

func up(x, y, t float64) schemas.PointerEvent {
	return schemas.PointerEvent{Type: schemas.PointerUp, X: x, Y: y, TimeMs: t}
}

// runFrames ticks the controller every 16ms until the kinetic phase ends or
// the limit is hit. It returns the number of frames executed.
func runFrames(c *Controller, start float64, limit int, each func()) int {
	now := start
	for i := 1; i <= limit; i++ {
		now += 16
		running := c.Frame(now)
		if each != nil {
			each()
		}
		if !running {
			return i
		}
	}
	return limit
}
