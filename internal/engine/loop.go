// internal/engine/loop.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/telemetry"
)

var (
	// ErrNotRunning is returned by commands sent before Start or after the loop exited.
	ErrNotRunning = errors.New("engine loop is not running")
	// ErrStopped is returned by Start on a loop that has already run.
	ErrStopped = errors.New("engine loop has been stopped")
	// ErrAlreadyRunning is returned by a second Start on a running loop.
	ErrAlreadyRunning = errors.New("engine loop is already running")
)

const defaultPublishTimeout = 100 * time.Millisecond

// Config controls loop scheduling.
type Config struct {
	FrameInterval   time.Duration
	CommandBuffer   int
	MaxSettleFrames int
}

// DefaultConfig returns a 60Hz loop.
func DefaultConfig() Config {
	return Config{
		FrameInterval:   16 * time.Millisecond,
		CommandBuffer:   64,
		MaxSettleFrames: 2000,
	}
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock overrides the engine clock.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithFrameSource overrides the frame source.
func WithFrameSource(f FrameSource) Option {
	return func(l *Loop) { l.frames = f }
}

// WithPublisher forwards controller events to p.
func WithPublisher(p telemetry.Publisher) Option {
	return func(l *Loop) { l.publisher = p }
}

// WithRestamp stamps every pointer event with the engine clock on arrival,
// for input whose timestamps come from another clock.
func WithRestamp() Option {
	return func(l *Loop) { l.restamp = true }
}

type command struct {
	fn    func(*scroll.Controller)
	reply chan struct{}
}

// Loop owns a scroll controller on a single goroutine. Pointer input, resets,
// technique swaps and snapshots arrive as commands; frame ticks arrive on the
// same select, and only while a kinetic phase is running.
type Loop struct {
	ctrl      *scroll.Controller
	cfg       Config
	clock     Clock
	frames    FrameSource
	publisher telemetry.Publisher
	restamp   bool
	logger    *zap.Logger

	cmds chan command

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	frameCount int
}

// New wraps ctrl in a loop. The loop registers itself as the controller's observer.
func New(ctrl *scroll.Controller, cfg Config, logger *zap.Logger, opts ...Option) *Loop {
	def := DefaultConfig()
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = def.CommandBuffer
	}
	if cfg.MaxSettleFrames <= 0 {
		cfg.MaxSettleFrames = def.MaxSettleFrames
	}
	l := &Loop{
		ctrl:   ctrl,
		cfg:    cfg,
		logger: logger.Named("engine"),
		cmds:   make(chan command, cfg.CommandBuffer),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.clock == nil {
		l.clock = NewMonotonicClock()
	}
	if l.frames == nil {
		l.frames = NewTickerFrames(l.clock)
	}
	ctrl.SetObserver(l.publish)
	return l
}

// Start launches the loop goroutine. It ends when ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		select {
		case <-l.done:
			return ErrStopped
		default:
			return ErrAlreadyRunning
		}
	}
	l.started = true
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
	l.logger.Debug("Engine loop started.", zap.Duration("frame_interval", l.cfg.FrameInterval))
	return nil
}

// Stop cancels the loop and waits for teardown. Safe to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.done
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	var frameCh <-chan float64
	defer close(done)
	defer func() {
		if frameCh != nil {
			l.frames.Stop()
		}
		l.ctrl.Teardown()
		l.logger.Debug("Engine loop stopped.", zap.Int("frames", l.frameCount))
	}()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Engine loop panicked, tearing down.", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-l.cmds:
			cmd.fn(l.ctrl)
			frameCh = l.schedule(frameCh)
			close(cmd.reply)
		case now := <-frameCh:
			l.frameCount++
			l.ctrl.Frame(now)
			frameCh = l.schedule(frameCh)
		}
	}
}

// schedule suspends the frame source whenever there is nothing to animate.
func (l *Loop) schedule(frameCh <-chan float64) <-chan float64 {
	switch inertial := l.ctrl.Inertial(); {
	case inertial && frameCh == nil:
		return l.frames.Start(l.cfg.FrameInterval)
	case !inertial && frameCh != nil:
		l.frames.Stop()
		return nil
	}
	return frameCh
}

// do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) do(ctx context.Context, fn func(*scroll.Controller)) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}

	cmd := command{fn: fn, reply: make(chan struct{})}
	select {
	case l.cmds <- cmd:
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.reply:
		return nil
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch feeds a pointer event to the controller and reports whether it was consumed.
func (l *Loop) Dispatch(ctx context.Context, ev schemas.PointerEvent) (bool, error) {
	if !ev.Type.Valid() {
		return false, fmt.Errorf("unsupported pointer type %q", ev.Type)
	}
	var consumed bool
	err := l.do(ctx, func(c *scroll.Controller) {
		if l.restamp || ev.TimeMs == 0 {
			ev.TimeMs = l.clock.Now()
		}
		consumed = c.Handle(ev)
	})
	return consumed, err
}

// Reset positions the content at offset and clears all interaction state.
func (l *Loop) Reset(ctx context.Context, offset float64) error {
	return l.do(ctx, func(c *scroll.Controller) { c.Reset(offset) })
}

// SwapTechnique tears down the current policy, switches to t and resets to offset.
func (l *Loop) SwapTechnique(ctx context.Context, t scroll.Technique, offset float64) error {
	if !t.Valid() {
		return fmt.Errorf("unknown scroll technique %q", t)
	}
	return l.do(ctx, func(c *scroll.Controller) {
		c.SetTechnique(t)
		c.Reset(offset)
	})
}

// UpdateSettings changes the gains live.
func (l *Loop) UpdateSettings(ctx context.Context, s schemas.ScrollSettings) error {
	return l.do(ctx, func(c *scroll.Controller) { c.SetSettings(s) })
}

// Snapshot returns a copy of the controller state.
func (l *Loop) Snapshot(ctx context.Context) (scroll.Snapshot, error) {
	var snap scroll.Snapshot
	err := l.do(ctx, func(c *scroll.Controller) { snap = c.Snapshot() })
	return snap, err
}

// Frames returns the number of frame ticks processed so far.
func (l *Loop) Frames(ctx context.Context) (int, error) {
	var n int
	err := l.do(ctx, func(*scroll.Controller) { n = l.frameCount })
	return n, err
}

// publish forwards a controller event. It runs on the loop goroutine, so the
// wait for slow subscribers is bounded.
func (l *Loop) publish(ev scroll.Event) {
	if l.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	if err := l.publisher.Post(ctx, telemetry.Kind(ev.Kind), ev); err != nil {
		l.logger.Warn("Dropped telemetry event.", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}
