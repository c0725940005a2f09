// cmd/replay.go
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

type replayOptions struct {
	scroll        scrollFlags
	traces        []string
	allTechniques bool
	concurrency   int
	timeline      bool
	record        string
}

func newReplayCmd(stores storeProvider) *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded pointer traces in virtual time",
		Long: `Replays one or more JSONL pointer traces against headless surfaces and
prints a summary per trace. With --all-techniques every trace is replayed once
per technique so their behavior can be compared side by side.`,
		Example: `  scrolllab replay --trace session.jsonl
  scrolllab replay --trace a.jsonl --trace b.jsonl --all-techniques --record events.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, stores)
		},
	}
	opts.scroll.register(cmd)
	cmd.Flags().StringArrayVar(&opts.traces, "trace", nil, "JSONL pointer trace to replay (repeatable).")
	cmd.Flags().BoolVar(&opts.allTechniques, "all-techniques", false, "Replay each trace with every technique.")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "Number of traces replayed in parallel.")
	cmd.Flags().BoolVar(&opts.timeline, "timeline", false, "Include offset timelines in the output.")
	cmd.Flags().StringVar(&opts.record, "record", "", "Record interaction telemetry to this JSONL file.")
	_ = cmd.MarkFlagRequired("trace")
	return cmd
}

func runReplay(cmd *cobra.Command, opts *replayOptions, stores storeProvider) error {
	ctx := cmd.Context()
	logger := observability.GetLogger().Named("replay")
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
	techniques := []scroll.Technique{technique}
	if opts.allTechniques {
		techniques = scroll.Techniques()
	}

	var jobs []engine.Job
	for _, path := range opts.traces {
		events, err := readTrace(path)
		if err != nil {
			return err
		}
		for _, t := range techniques {
			jobs = append(jobs, engine.Job{Name: path, Technique: t, Events: events})
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

	factory := func(job engine.Job) (*scroll.Controller, error) {
		ctrl, _ := newHeadlessController(cfg, job.Technique, settings, logger)
		return ctrl, nil
	}
	batch, err := engine.NewBatch(replayer, factory, opts.concurrency, logger)
	if err != nil {
		return err
	}
	results, err := batch.Run(ctx, jobs)
	if err != nil {
		return err
	}

	summaries := make([]replaySummary, 0, len(results))
	for _, r := range results {
		s := summarize(r.Name, len(jobs[r.Index].Events), r.Result, opts.timeline)
		s.Technique = r.Technique
		if r.Err != nil {
			s.Error = r.Err.Error()
		}
		summaries = append(summaries, s)
	}
	if len(summaries) == 1 {
		return printJSON(cmd.OutOrStdout(), summaries[0])
	}
	return printJSON(cmd.OutOrStdout(), summaries)
}

func readTrace(path string) ([]schemas.PointerEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()
	events, err := trace.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", path, err)
	}
	return events, nil
}
