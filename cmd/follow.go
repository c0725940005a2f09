// cmd/follow.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scrolllab/internal/engine"
	"github.com/xkilldash9x/scrolllab/internal/observability"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/telemetry"
	"github.com/xkilldash9x/scrolllab/internal/trace"
)

type followOptions struct {
	scroll         scrollFlags
	tracePath      string
	fromStart      bool
	keepTimestamps bool
	duration       time.Duration
}

func newFollowCmd(stores storeProvider) *cobra.Command {
	opts := &followOptions{}
	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Drive a live engine loop from a growing pointer log",
		Long: `Tails a JSONL pointer log and feeds every new event into a real-time engine
loop over a headless surface. Interaction milestones are logged as they happen.
The final state is printed when the command stops (Ctrl+C or --duration).

Events are stamped on arrival unless --keep-timestamps is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollow(cmd, opts, stores)
		},
	}
	opts.scroll.register(cmd)
	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "JSONL pointer log to follow.")
	cmd.Flags().BoolVar(&opts.fromStart, "from-start", false, "Read the log from the beginning instead of only new lines.")
	cmd.Flags().BoolVar(&opts.keepTimestamps, "keep-timestamps", false, "Use the timestamps in the log instead of the engine clock.")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted).")
	_ = cmd.MarkFlagRequired("trace")
	return cmd
}

func runFollow(cmd *cobra.Command, opts *followOptions, stores storeProvider) error {
	ctx := cmd.Context()
	logger := observability.GetLogger().Named("follow")
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}

	prefs, closeStore, err := stores.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open preference store: %w", err)
	}
	defer closeStore()

	technique, settings, err := opts.scroll.resolve(ctx, cmd, cfg, prefs)
	if err != nil {
		return err
	}

	whence := io.SeekEnd
	if opts.fromStart {
		whence = io.SeekStart
	}
	t, err := tail.TailFile(opts.tracePath, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail pointer log: %w", err)
	}
	defer t.Cleanup()

	bus := telemetry.NewBus(logger, cfg.Telemetry().BufferSize)
	defer bus.Shutdown()

	loopOpts := []engine.Option{engine.WithPublisher(bus)}
	if !opts.keepTimestamps {
		loopOpts = append(loopOpts, engine.WithRestamp())
	}
	ctrl, _ := newHeadlessController(cfg, technique, settings, logger)
	loop := engine.New(ctrl, engineConfig(cfg), logger, loopOpts...)
	if err := loop.Start(ctx); err != nil {
		return err
	}
	defer loop.Stop()

	runCtx := ctx
	if opts.duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	logger.Info("Following pointer log.",
		zap.String("path", opts.tracePath),
		zap.String("technique", string(technique)))

	events, unsubscribe := bus.Subscribe(telemetry.ScrollKinds()...)
	defer unsubscribe()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return logScrollEvents(gctx, bus, events, logger)
	})
	g.Go(func() error {
		defer t.Stop()
		return feedLoop(gctx, t.Lines, loop, logger)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	// A parent cancellation is reported; the --duration deadline is a normal stop.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	snap, err := loop.Snapshot(context.Background())
	if err != nil {
		return err
	}
	frames, _ := loop.Frames(context.Background())
	return printJSON(cmd.OutOrStdout(), struct {
		Snapshot scroll.Snapshot `json:"snapshot"`
		Frames   int             `json:"frames"`
	}{snap, frames})
}

// feedLoop dispatches each parsed line to the loop until ctx ends. Malformed
// lines are logged and skipped.
func feedLoop(ctx context.Context, lines <-chan *tail.Line, loop *engine.Loop, logger *zap.Logger) error {
	n := 0
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Stopped following.", zap.Int("events", n))
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				logger.Warn("Error reading pointer log.", zap.Error(line.Err))
				continue
			}
			ev, ok, err := trace.ParseLine([]byte(line.Text))
			if err != nil {
				logger.Warn("Skipping malformed pointer event.", zap.String("line", line.Text), zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
			if _, err := loop.Dispatch(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("failed to dispatch pointer event: %w", err)
			}
			n++
		}
	}
}

func logScrollEvents(ctx context.Context, bus *telemetry.Bus, msgs <-chan telemetry.Message, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			fields := []zap.Field{zap.String("kind", string(msg.Kind))}
			if ev, ok := msg.Payload.(scroll.Event); ok {
				fields = append(fields,
					zap.Float64("offset", ev.Offset),
					zap.Float64("velocity", ev.Velocity))
				if ev.Reason != "" {
					fields = append(fields, zap.String("reason", string(ev.Reason)))
				}
			}
			logger.Info("Scroll event.", fields...)
			bus.Acknowledge(msg)
		}
	}
}
