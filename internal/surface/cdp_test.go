// internal/surface/cdp_test.go
package surface

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
)

var testSelectors = Selectors{Container: "#scroll-container", Content: "#scroll-content", Marker: "#scroll-marker"}

func TestCDP_Refresh(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("Success", func(t *testing.T) {
		c := NewCDP(context.Background(), testSelectors, logger)
		var captured string
		c.evalFunc = func(ctx context.Context, script string, res *[]byte) error {
			captured = script
			*res = []byte(`{"left":8,"top":64,"width":390,"height":600,"contentHeight":4200}`)
			return nil
		}
		require.NoError(t, c.Refresh(context.Background()))
		assert.Contains(t, captured, `"#scroll-container"`)
		assert.Contains(t, captured, `"#scroll-content"`)
		assert.Equal(t, scroll.Rect{Left: 8, Top: 64, Width: 390, Height: 600}, c.ContainerRect())
		assert.Equal(t, 4200.0, c.ContentHeight())
	})

	t.Run("NotFound", func(t *testing.T) {
		c := NewCDP(context.Background(), testSelectors, logger)
		c.evalFunc = func(ctx context.Context, script string, res *[]byte) error {
			*res = []byte("null")
			return nil
		}
		err := c.Refresh(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("EvalError", func(t *testing.T) {
		c := NewCDP(context.Background(), testSelectors, logger)
		c.evalFunc = func(ctx context.Context, script string, res *[]byte) error {
			return errors.New("target closed")
		}
		err := c.Refresh(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "target closed")
	})

	t.Run("BadPayload", func(t *testing.T) {
		c := NewCDP(context.Background(), testSelectors, logger)
		c.evalFunc = func(ctx context.Context, script string, res *[]byte) error {
			*res = []byte(`{"left":"nope"}`)
			return nil
		}
		assert.Error(t, c.Refresh(context.Background()))
	})
}

func TestCDP_RefreshRunsOnTabContext(t *testing.T) {
	tabCtx, cancelTab := chromedp.NewContext(context.Background())
	defer cancelTab()

	// Mirrors chromedp.Run, which rejects contexts without a chromedp target.
	strictRun := func(ctx context.Context, actions ...chromedp.Action) error {
		if chromedp.FromContext(ctx) == nil {
			return chromedp.ErrInvalidContext
		}
		return nil
	}

	t.Run("CommandContext", func(t *testing.T) {
		c := NewCDP(tabCtx, testSelectors, zaptest.NewLogger(t))
		var calls int
		c.runActionsFunc = func(ctx context.Context, actions ...chromedp.Action) error {
			calls++
			require.Len(t, actions, 1)
			return strictRun(ctx, actions...)
		}
		// Nothing fills the result, so the lookup reports a missing container.
		err := c.Refresh(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, chromedp.ErrInvalidContext)
		assert.Contains(t, err.Error(), "not found")
		assert.Equal(t, 1, calls)
	})

	t.Run("CallerCancelled", func(t *testing.T) {
		c := NewCDP(tabCtx, testSelectors, zaptest.NewLogger(t))
		c.runActionsFunc = func(ctx context.Context, actions ...chromedp.Action) error {
			if err := strictRun(ctx, actions...); err != nil {
				return err
			}
			<-ctx.Done()
			return ctx.Err()
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := c.Refresh(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCDP_RemeasuresOnPressAndReset(t *testing.T) {
	c := NewCDP(context.Background(), testSelectors, zaptest.NewLogger(t))
	content := 1600.0
	var measures int
	c.evalFunc = func(ctx context.Context, script string, res *[]byte) error {
		if res == nil {
			return nil
		}
		measures++
		*res = []byte(fmt.Sprintf(`{"left":0,"top":0,"width":390,"height":600,"contentHeight":%g}`, content))
		return nil
	}
	require.NoError(t, c.Refresh(context.Background()))

	ctrl := scroll.NewController(c, scroll.TechniqueI, schemas.ScrollSettings{DragGain: 1, InertiaGain: 1}, scroll.DefaultTuning())
	ctrl.Reset(2000)
	assert.Equal(t, 1000.0, ctrl.Snapshot().State.ContentOffset)

	content = 3600 // late images pushed the content down
	ctrl.Handle(schemas.PointerEvent{Type: schemas.PointerDown, Y: 500, TimeMs: 0})
	ctrl.Handle(schemas.PointerEvent{Type: schemas.PointerMove, Y: 0, TimeMs: 400})
	ctrl.Handle(schemas.PointerEvent{Type: schemas.PointerUp, Y: 0, TimeMs: 800})

	assert.Equal(t, 3, measures)
	assert.Equal(t, 3600.0, c.ContentHeight())
	assert.Equal(t, 3000.0, ctrl.MaxScrollable())
	assert.Equal(t, 1500.0, ctrl.Snapshot().State.ContentOffset)
	assert.Zero(t, c.Failures())
}

func TestCDP_RemeasureFailureKeepsGeometry(t *testing.T) {
	c := NewCDP(context.Background(), testSelectors, zaptest.NewLogger(t))
	c.rect = scroll.Rect{Top: 64, Width: 390, Height: 600}
	c.contentHeight = 2000
	c.evalFunc = func(ctx context.Context, script string, res *[]byte) error {
		return errors.New("target detached")
	}
	c.Remeasure()
	assert.Equal(t, scroll.Rect{Top: 64, Width: 390, Height: 600}, c.ContainerRect())
	assert.Equal(t, 2000.0, c.ContentHeight())
	assert.Equal(t, 1, c.Failures())
}

func TestCDP_RenderUsesRunActions(t *testing.T) {
	c := NewCDP(context.Background(), testSelectors, zaptest.NewLogger(t))
	var calls int
	c.runActionsFunc = func(ctx context.Context, actions ...chromedp.Action) error {
		calls++
		require.Len(t, actions, 1)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "render calls carry a timeout")
		return nil
	}
	c.ApplyOffset(120)
	c.ShowMarker(10, 20)
	c.HideMarker()
	assert.Equal(t, 3, calls)
	assert.Zero(t, c.Failures())
}

func TestCDP_RenderScripts(t *testing.T) {
	c := NewCDP(context.Background(), testSelectors, zaptest.NewLogger(t))
	var scripts []string
	c.evalFunc = func(ctx context.Context, script string, res *[]byte) error {
		assert.Nil(t, res)
		scripts = append(scripts, script)
		return nil
	}
	c.ApplyOffset(42.5)
	c.ShowMarker(-40, 210)
	c.HideMarker()

	require.Len(t, scripts, 3)
	assert.Contains(t, scripts[0], `"translateY(-42.5px)"`)
	assert.Contains(t, scripts[1], `"#scroll-marker", -40, 210`)
	assert.True(t, strings.Contains(scripts[2], "display = 'none'"))
}

func TestCDP_RenderFailuresAreSwallowed(t *testing.T) {
	c := NewCDP(context.Background(), testSelectors, zaptest.NewLogger(t))
	c.evalFunc = func(ctx context.Context, script string, res *[]byte) error {
		return errors.New("websocket closed")
	}
	c.rect = scroll.Rect{Height: 600}
	c.contentHeight = 1600

	ctrl := scroll.NewController(c, scroll.TechniqueIV, testSettings(), scroll.DefaultTuning())
	assert.Equal(t, 300.0, ctrl.SetOffset(300))
	assert.Equal(t, 2, c.Failures())
}
