// internal/engine/replay.go
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/telemetry"
)

// TimelinePoint is the offset after a pointer event or frame.
type TimelinePoint struct {
	TimeMs float64 `json:"t"`
	Offset float64 `json:"offset"`
	Frame  bool    `json:"frame,omitempty"`
}

// ReplayResult summarizes a virtual-time replay.
type ReplayResult struct {
	Final    scroll.Snapshot `json:"final"`
	Frames   int             `json:"frames"`
	Flicks   int             `json:"flicks"`
	Stops    []scroll.Event  `json:"stops"`
	Events   []scroll.Event  `json:"events"`
	Timeline []TimelinePoint `json:"timeline"`
	// Settled is false when the kinetic phase was still running after MaxSettleFrames.
	Settled bool `json:"settled"`
}

// Replayer feeds a pointer sequence to a controller in virtual time, inserting
// frame ticks at FrameIntervalMs between events and after the last one.
type Replayer struct {
	FrameIntervalMs float64
	MaxSettleFrames int
	Publisher       telemetry.Publisher
	Logger          *zap.Logger
}

// NewReplayer builds a replayer from loop settings.
func NewReplayer(cfg Config, logger *zap.Logger) *Replayer {
	def := DefaultConfig()
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.MaxSettleFrames <= 0 {
		cfg.MaxSettleFrames = def.MaxSettleFrames
	}
	return &Replayer{
		FrameIntervalMs: float64(cfg.FrameInterval) / float64(time.Millisecond),
		MaxSettleFrames: cfg.MaxSettleFrames,
		Logger:          logger.Named("replay"),
	}
}

// Run replays events against ctrl. The controller's observer is replaced for
// the duration of the call.
func (r *Replayer) Run(ctx context.Context, ctrl *scroll.Controller, events []schemas.PointerEvent) ReplayResult {
	interval := r.FrameIntervalMs
	if interval <= 0 {
		interval = float64(DefaultConfig().FrameInterval.Milliseconds())
	}
	maxSettle := r.MaxSettleFrames
	if maxSettle <= 0 {
		maxSettle = DefaultConfig().MaxSettleFrames
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var res ReplayResult
	ctrl.SetObserver(func(ev scroll.Event) {
		res.Events = append(res.Events, ev)
		switch ev.Kind {
		case scroll.EventFlick:
			res.Flicks++
		case scroll.EventInertiaStop:
			res.Stops = append(res.Stops, ev)
		}
		if r.Publisher != nil {
			if err := r.Publisher.Post(ctx, telemetry.Kind(ev.Kind), ev); err != nil {
				logger.Warn("Failed to publish replay event.", zap.String("kind", string(ev.Kind)), zap.Error(err))
			}
		}
	})
	defer ctrl.SetObserver(nil)

	frame := func(now float64) {
		ctrl.Frame(now)
		res.Frames++
		res.Timeline = append(res.Timeline, TimelinePoint{TimeMs: now, Offset: ctrl.Snapshot().State.ContentOffset, Frame: true})
	}

	now := 0.0
	for i, ev := range events {
		if ctx.Err() != nil {
			break
		}
		if i == 0 {
			now = ev.TimeMs
		}
		for ctrl.Inertial() && now+interval < ev.TimeMs {
			now += interval
			frame(now)
		}
		ctrl.Handle(ev)
		if ev.TimeMs > now {
			now = ev.TimeMs
		}
		res.Timeline = append(res.Timeline, TimelinePoint{TimeMs: ev.TimeMs, Offset: ctrl.Snapshot().State.ContentOffset})
	}

	for n := 0; ctrl.Inertial() && n < maxSettle && ctx.Err() == nil; n++ {
		now += interval
		frame(now)
	}

	res.Settled = !ctrl.Inertial()
	res.Final = ctrl.Snapshot()
	if !res.Settled {
		logger.Warn("Kinetic phase did not settle within the frame budget.", zap.Int("max_settle_frames", maxSettle))
	}
	return res
}
