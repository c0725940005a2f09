// cmd/simulate.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/engine"
	"github.com/xkilldash9x/scrolllab/internal/observability"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/trace"
)

type simulateOptions struct {
	scroll        scrollFlags
	x, y          float64
	drag          []float64
	stepMs        float64
	flickVelocity float64
	flickDistance float64
	flickDuration float64
	flickSteps    int
	gapMs         float64
	timeline      bool
	saveTrace     string
	record        string
}

func newSimulateCmd(stores storeProvider) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a synthetic drag and flick against a headless surface",
		Long: `Builds a synthetic gesture from a drag (a list of per-move deltas) and an
optional flick, then replays it in virtual time against a headless surface and
prints the resulting offset, stop reasons and marker placement.

Negative deltas move the finger up, which scrolls the content down.`,
		Example: `  scrolllab simulate --technique IV --drag -50,-50 --flick-velocity -1.2
  scrolllab simulate -t II --flick-distance -300 --timeline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts, stores)
		},
	}
	opts.scroll.register(cmd)
	cmd.Flags().Float64Var(&opts.x, "x", -1, "Pointer x in window coordinates (default: container center).")
	cmd.Flags().Float64Var(&opts.y, "y", -1, "Pointer start y in window coordinates (default: container center).")
	cmd.Flags().Float64SliceVar(&opts.drag, "drag", nil, "Comma-separated pointer move deltas in px.")
	cmd.Flags().Float64Var(&opts.stepMs, "step-ms", 16, "Milliseconds between drag moves.")
	cmd.Flags().Float64Var(&opts.flickVelocity, "flick-velocity", 0, "Flick release velocity in px/ms.")
	cmd.Flags().Float64Var(&opts.flickDistance, "flick-distance", 0, "Flick travel in px. Ignored when --flick-velocity is set.")
	cmd.Flags().Float64Var(&opts.flickDuration, "flick-duration", 80, "Flick duration in ms.")
	cmd.Flags().IntVar(&opts.flickSteps, "flick-steps", 4, "Number of moves in the flick.")
	cmd.Flags().Float64Var(&opts.gapMs, "gap-ms", 100, "Pause between the drag and the flick in ms.")
	cmd.Flags().BoolVar(&opts.timeline, "timeline", false, "Include the offset timeline in the output.")
	cmd.Flags().StringVar(&opts.saveTrace, "save-trace", "", "Write the generated pointer trace to this JSONL file.")
	cmd.Flags().StringVar(&opts.record, "record", "", "Record interaction telemetry to this JSONL file.")
	return cmd
}

// gesture assembles the drag and flick described by the options.
func (o *simulateOptions) gesture(container scroll.Rect) ([]schemas.PointerEvent, error) {
	x, y := o.x, o.y
	if x < 0 {
		x = container.Left + container.Width/2
	}
	if y < 0 {
		y = container.Top + container.Height/2
	}

	distance := o.flickDistance
	if o.flickVelocity != 0 {
		distance = o.flickVelocity * o.flickDuration
	}
	if len(o.drag) == 0 && distance == 0 {
		return nil, fmt.Errorf("nothing to simulate: pass --drag and/or --flick-velocity or --flick-distance")
	}
	if o.flickDuration <= 0 && distance != 0 {
		return nil, fmt.Errorf("--flick-duration must be positive")
	}

	var parts [][]schemas.PointerEvent
	start := 1.0
	if len(o.drag) > 0 {
		drag := trace.Drag(x, y, o.drag, o.stepMs, start)
		parts = append(parts, drag)
		start = drag[len(drag)-1].TimeMs + o.gapMs
	}
	if distance != 0 {
		parts = append(parts, trace.Flick(x, y, distance, o.flickDuration, o.flickSteps, start))
	}
	return trace.Concat(parts...), nil
}

func runSimulate(cmd *cobra.Command, opts *simulateOptions, stores storeProvider) error {
	ctx := cmd.Context()
	logger := observability.GetLogger().Named("simulate")
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

	events, err := opts.gesture(cfg.Surface().Container)
	if err != nil {
		return err
	}
	if opts.saveTrace != "" {
		if err := saveTrace(opts.saveTrace, events); err != nil {
			return err
		}
	}

	replayer := engine.NewReplayer(engineConfig(cfg), logger)
	if opts.record != "" {
		pub, stop, err := startRecording(ctx, opts.record, cfg, logger)
		if err != nil {
			return err
		}
		replayer.Publisher = pub
		defer func() {
			if err := stop(); err != nil {
				logger.Warn("Recording did not finish cleanly.", zap.Error(err))
			}
		}()
	}

	ctrl, _ := newHeadlessController(cfg, technique, settings, logger)
	res := replayer.Run(ctx, ctrl, events)
	logger.Debug("Simulation finished.",
		zap.String("technique", string(technique)),
		zap.Int("events", len(events)),
		zap.Int("frames", res.Frames))
	return printJSON(cmd.OutOrStdout(), summarize("", len(events), res, opts.timeline))
}

func saveTrace(path string, events []schemas.PointerEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	if err := trace.WriteAll(f, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
