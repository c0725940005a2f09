// internal/scroll/fuzz_test.go
package scroll

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

type fuzzStep struct {
	Kind  uint8
	X, Y  float64
	Dt    float64
	Frame bool
}

type fuzzScript struct {
	Technique uint8
	Content   float64
	DragGain  float64
	Inertia   float64
	Steps     []fuzzStep
}

// FuzzController_Clamping drives arbitrary gesture sequences and checks the
// offset never leaves [0, maxScrollable].
func FuzzController_Clamping(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		script := &fuzzScript{}
		if err := fuzz.NewConsumer(data).GenerateStruct(script); err != nil {
			return
		}
		surf := newFakeSurface(phoneRect, script.Content)
		techniques := Techniques()
		c := NewController(surf, techniques[int(script.Technique)%len(techniques)],
			schemas.ScrollSettings{DragGain: script.DragGain, InertiaGain: script.Inertia}, DefaultTuning())

		now := 0.0
		kinds := []schemas.PointerType{schemas.PointerDown, schemas.PointerMove, schemas.PointerUp, schemas.PointerCancel}
		for _, st := range script.Steps {
			if finite(st.Dt) && st.Dt > 0 && st.Dt < 1e6 {
				now += st.Dt
			}
			if st.Frame {
				c.Frame(now)
			} else {
				c.Handle(schemas.PointerEvent{Type: kinds[int(st.Kind)%len(kinds)], X: st.X, Y: st.Y, TimeMs: now})
			}
			off := c.Snapshot().State.ContentOffset
			if off < 0 || off > c.MaxScrollable() || !finite(off) {
				t.Fatalf("offset %v outside [0, %v]", off, c.MaxScrollable())
			}
		}
	})
}
