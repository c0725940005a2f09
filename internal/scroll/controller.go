// internal/scroll/controller.go
package scroll

import (
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// Controller drives one scroll surface. It is not safe for concurrent use;
// the engine loop owns it from a single goroutine.
type Controller struct {
	surface   Surface
	technique Technique
	policy    Policy
	settings  schemas.ScrollSettings
	tuning    Tuning
	state     State
	marker    Marker
	logger    *zap.Logger
	observer  Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a callback for gesture events.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// NewController builds a controller over surface with the given technique,
// gains and thresholds. The surface is immediately rendered at offset 0.
func NewController(surface Surface, technique Technique, settings schemas.ScrollSettings, tuning Tuning, opts ...Option) *Controller {
	if !technique.Valid() {
		technique = TechniqueI
	}
	c := &Controller{
		surface:   surface,
		technique: technique,
		policy:    technique.Policy(),
		settings:  settings.Clamped(),
		tuning:    tuning.normalized(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.SetOffset(0)
	return c
}

// SetObserver replaces the event observer. A nil observer disables events.
func (c *Controller) SetObserver(o Observer) {
	c.observer = o
}

// Technique returns the active technique.
func (c *Controller) Technique() Technique { return c.technique }

// Settings returns the active gains.
func (c *Controller) Settings() schemas.ScrollSettings { return c.settings }

// Tuning returns the active thresholds.
func (c *Controller) Tuning() Tuning { return c.tuning }

// Inertial reports whether a kinetic phase is running.
func (c *Controller) Inertial() bool {
	return c.state.Inertia != nil && c.state.Inertia.Active
}

// Snapshot returns a copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Technique:     c.technique,
		Settings:      c.settings,
		State:         c.state.clone(),
		Marker:        c.marker,
		MaxScrollable: c.MaxScrollable(),
	}
}

// SetSettings updates the gains. They apply from the next move or release.
func (c *Controller) SetSettings(s schemas.ScrollSettings) {
	c.settings = s.Clamped()
	c.debug("settings updated",
		zap.Float64("drag_gain", c.settings.DragGain),
		zap.Float64("inertia_gain", c.settings.InertiaGain))
}

// SetTechnique tears down the current policy and switches to t.
// Callers are expected to Reset afterwards.
func (c *Controller) SetTechnique(t Technique) {
	if !t.Valid() {
		return
	}
	c.Teardown()
	c.technique = t
	c.policy = t.Policy()
	c.emit(Event{Kind: EventTechnique, TimeMs: c.state.LastTimestamp, Offset: c.state.ContentOffset})
}

// Reset returns the controller to an idle state positioned at offset.
func (c *Controller) Reset(offset float64) {
	c.remeasure()
	c.state.Dragging = false
	c.state.Velocity = 0
	c.state.Inertia = nil
	c.state.BreakContact = nil
	c.HideHighlight()
	if !finite(offset) {
		offset = 0
	}
	c.SetOffset(offset)
	c.emit(Event{Kind: EventReset, TimeMs: c.state.LastTimestamp, Offset: c.state.ContentOffset})
}

// Teardown cancels any kinetic phase and hides the highlight. The offset is kept.
func (c *Controller) Teardown() {
	c.state.Dragging = false
	c.state.Inertia = nil
	c.HideHighlight()
	c.emit(Event{Kind: EventTeardown, TimeMs: c.state.LastTimestamp, Offset: c.state.ContentOffset})
}

// Handle routes a pointer event to the matching tracker method and reports
// whether the event was consumed.
func (c *Controller) Handle(ev schemas.PointerEvent) bool {
	switch ev.Type {
	case schemas.PointerDown:
		return c.PointerDown(ev)
	case schemas.PointerMove:
		return c.PointerMove(ev)
	case schemas.PointerUp:
		return c.PointerUp(ev)
	case schemas.PointerCancel:
		return c.PointerCancel(ev)
	}
	return false
}

func (c *Controller) remeasure() {
	if m, ok := c.surface.(Remeasurer); ok {
		m.Remeasure()
	}
}

func (c *Controller) emit(ev Event) {
	if c.observer == nil {
		return
	}
	ev.Technique = c.technique
	c.observer(ev)
}

func (c *Controller) debug(msg string, fields ...zap.Field) {
	if c.logger.Core().Enabled(zap.DebugLevel) {
		c.logger.Debug(msg, fields...)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
