// internal/surface/headless_test.go
package surface_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/surface"
)

func TestTransform(t *testing.T) {
	assert.Equal(t, "translateY(0px)", surface.Transform(0))
	assert.Equal(t, "translateY(-120px)", surface.Transform(120))
	assert.Equal(t, "translateY(-12.5px)", surface.Transform(12.5))
}

func TestHeadless_DrivenByController(t *testing.T) {
	h := surface.NewHeadless(scroll.Rect{Width: 390, Height: 600}, 1600)
	c := scroll.NewController(h, scroll.TechniqueII, schemas.DefaultScrollSettings(), scroll.DefaultTuning())
	assert.Equal(t, 1, h.Writes())

	c.SetOffset(250)
	assert.Equal(t, 250.0, h.Offset())
	assert.Equal(t, "translateY(-250px)", h.Transform())

	c.ShowHighlight(100, 400)
	m := h.Marker()
	assert.True(t, m.Visible)
	assert.Equal(t, 60.0, m.Left)
	assert.Equal(t, 110.0, m.Top)

	c.HideHighlight()
	assert.False(t, h.Marker().Visible)
}

func TestHeadless_ResizeAffectsRange(t *testing.T) {
	h := surface.NewHeadless(scroll.Rect{Width: 390, Height: 600}, 1600)
	c := scroll.NewController(h, scroll.TechniqueI, schemas.DefaultScrollSettings(), scroll.DefaultTuning())
	assert.Equal(t, 1000.0, c.MaxScrollable())
	h.Resize(scroll.Rect{Width: 390, Height: 800}, 1600)
	assert.Equal(t, 800.0, c.MaxScrollable())
	assert.Equal(t, 800.0, c.SetOffset(900))
}
