// internal/surface/cdp.go
package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/internal/scroll"
)

// Selectors locate the scroll region inside a page.
type Selectors struct {
	Container string
	Content   string
	Marker    string
}

// geometry is what the measuring script returns.
type geometry struct {
	Left          float64 `json:"left"`
	Top           float64 `json:"top"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	ContentHeight float64 `json:"contentHeight"`
}

const (
	measureTimeout = 5 * time.Second
	renderTimeout  = 2 * time.Second
)

// CDP renders a scroll region of a live page through the Chrome DevTools Protocol.
// Geometry is cached and re-measured by Refresh, which the controller triggers
// through Remeasure before every press and reset. Render failures are logged
// and dropped, the controller is never told about them.
type CDP struct {
	ctx            context.Context
	logger         *zap.Logger
	selectors      Selectors
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error
	evalFunc       func(ctx context.Context, script string, res *[]byte) error

	mu            sync.Mutex
	rect          scroll.Rect
	contentHeight float64
	offset        float64
	failures      int
}

var (
	_ scroll.Surface    = (*CDP)(nil)
	_ scroll.Remeasurer = (*CDP)(nil)
)

// NewCDP creates a surface bound to a chromedp tab context.
func NewCDP(ctx context.Context, selectors Selectors, logger *zap.Logger) *CDP {
	c := &CDP{
		ctx:            ctx,
		logger:         logger.Named("surface.cdp"),
		selectors:      selectors,
		runActionsFunc: chromedp.Run,
	}
	c.evalFunc = c.runEval
	return c
}

// Refresh re-measures the container and content. The page is always queried
// through the tab context given to NewCDP; ctx only bounds how long the caller
// waits.
func (c *CDP) Refresh(ctx context.Context) error {
	script := fmt.Sprintf(`
		(function(containerSel, contentSel) {
			const container = document.querySelector(containerSel);
			const content = document.querySelector(contentSel);
			if (!container || !content) return null;
			const r = container.getBoundingClientRect();
			return { left: r.left, top: r.top, width: r.width, height: r.height, contentHeight: content.scrollHeight };
		})(%s, %s)`, jsonEncode(c.selectors.Container), jsonEncode(c.selectors.Content))

	var res []byte
	opCtx, cancel := context.WithTimeout(c.ctx, measureTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := c.evalFunc(opCtx, script, &res)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("measuring scroll container interrupted: %w", ctxErr)
		}
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timeout measuring scroll container after %v: %w", measureTimeout, opCtx.Err())
		}
		return fmt.Errorf("failed to measure scroll container: %w", err)
	}
	if len(res) == 0 || string(res) == "null" {
		return fmt.Errorf("scroll container %q or content %q not found", c.selectors.Container, c.selectors.Content)
	}

	var g geometry
	if err := json.Unmarshal(res, &g); err != nil {
		return fmt.Errorf("failed to decode container geometry: %w (payload: %s)", err, string(res))
	}

	c.mu.Lock()
	c.rect = scroll.Rect{Left: g.Left, Top: g.Top, Width: g.Width, Height: g.Height}
	c.contentHeight = g.ContentHeight
	c.mu.Unlock()

	c.logger.Debug("Measured scroll container.",
		zap.Float64("top", g.Top),
		zap.Float64("height", g.Height),
		zap.Float64("content_height", g.ContentHeight))
	return nil
}

// Remeasure implements scroll.Remeasurer. On failure the previous geometry
// is kept and the failure is counted like a render failure.
func (c *CDP) Remeasure() {
	if err := c.Refresh(c.ctx); err != nil {
		c.mu.Lock()
		c.failures++
		c.mu.Unlock()
		c.logger.Debug("Re-measure failed, keeping cached geometry.", zap.Error(err))
	}
}

// ContainerRect implements scroll.Surface.
func (c *CDP) ContainerRect() scroll.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rect
}

// ContentHeight implements scroll.Surface.
func (c *CDP) ContentHeight() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentHeight
}

// ApplyOffset implements scroll.Surface.
func (c *CDP) ApplyOffset(offset float64) {
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
	script := fmt.Sprintf(`(function(sel, t) { const el = document.querySelector(sel); if (el) el.style.transform = t; })(%s, %s)`,
		jsonEncode(c.selectors.Content), jsonEncode(Transform(offset)))
	c.render("apply offset", script)
}

// ShowMarker implements scroll.Surface.
func (c *CDP) ShowMarker(left, top float64) {
	script := fmt.Sprintf(`(function(sel, left, top) {
		const el = document.querySelector(sel);
		if (!el) return;
		el.style.left = left + 'px';
		el.style.top = top + 'px';
		el.style.display = 'block';
	})(%s, %s, %s)`, jsonEncode(c.selectors.Marker), jsonEncode(left), jsonEncode(top))
	c.render("show marker", script)
}

// HideMarker implements scroll.Surface.
func (c *CDP) HideMarker() {
	script := fmt.Sprintf(`(function(sel) { const el = document.querySelector(sel); if (el) el.style.display = 'none'; })(%s)`,
		jsonEncode(c.selectors.Marker))
	c.render("hide marker", script)
}

// Failures returns the number of render calls that failed.
func (c *CDP) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

func (c *CDP) render(op, script string) {
	opCtx, cancel := context.WithTimeout(c.ctx, renderTimeout)
	defer cancel()
	if err := c.evalFunc(opCtx, script, nil); err != nil {
		c.mu.Lock()
		c.failures++
		c.mu.Unlock()
		c.logger.Debug("CDP render failed.", zap.String("op", op), zap.Error(err))
	}
}

// runEval evaluates script in the page. A nil res discards the result.
func (c *CDP) runEval(ctx context.Context, script string, res *[]byte) error {
	if res == nil {
		return c.runActionsFunc(ctx, evaluate(script, nil))
	}
	return c.runActionsFunc(ctx, evaluate(script, res))
}

func evaluate(script string, res interface{}) chromedp.Action {
	return chromedp.Evaluate(script, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithSilent(true)
	})
}

// jsonEncode renders a value as a JS literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
