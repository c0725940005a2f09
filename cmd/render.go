// cmd/render.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/engine"
	"github.com/xkilldash9x/scrolllab/internal/observability"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/surface"
)

const settlePollInterval = 50 * time.Millisecond

type renderOptions struct {
	scroll    scrollFlags
	pageURL   string
	tracePath string
	headful   bool
	speed     float64
	settle    time.Duration
}

func newRenderCmd(stores storeProvider) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Play a pointer trace into a real page through Chrome",
		Long: `Opens the page in Chrome, binds the configured container, content and
marker elements as the scroll surface, and plays the trace through a real-time
engine loop so the scrolling can be watched or captured.`,
		Example: `  scrolllab render --url http://localhost:3000/read --trace flick.jsonl --headful`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, stores)
		},
	}
	opts.scroll.register(cmd)
	cmd.Flags().StringVar(&opts.pageURL, "url", "", "Page to open (default: browser.page_url).")
	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "JSONL pointer trace to play.")
	cmd.Flags().BoolVar(&opts.headful, "headful", false, "Show the browser window.")
	cmd.Flags().Float64Var(&opts.speed, "speed", 1, "Playback speed multiplier.")
	cmd.Flags().DurationVar(&opts.settle, "settle", 10*time.Second, "Maximum time to wait for the kinetic phase to end.")
	_ = cmd.MarkFlagRequired("trace")
	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions, stores storeProvider) error {
	ctx := cmd.Context()
	logger := observability.GetLogger().Named("render")
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	if opts.pageURL != "" {
		cfg.SetBrowserPageURL(opts.pageURL)
	}
	if opts.headful {
		cfg.SetBrowserHeadless(false)
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
	events, err := readTrace(opts.tracePath)
	if err != nil {
		return err
	}

	bc := cfg.Browser()
	pageCtx, closePage, err := surface.OpenPage(ctx, surface.BrowserOptions{
		Headless:     bc.Headless,
		PageURL:      bc.PageURL,
		WaitSelector: bc.ContainerSelector,
	})
	if err != nil {
		return err
	}
	defer closePage()

	cdp := surface.NewCDP(pageCtx, surface.Selectors{
		Container: bc.ContainerSelector,
		Content:   bc.ContentSelector,
		Marker:    bc.MarkerSelector,
	}, logger)
	if err := cdp.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to measure scroll region: %w", err)
	}
	logger.Info("Scroll region bound.",
		zap.String("url", bc.PageURL),
		zap.Float64("content_height", cdp.ContentHeight()))

	ctrl := scroll.NewController(cdp, technique, settings, cfg.Scroll().Tuning.ToTuning(), scroll.WithLogger(logger))
	loop := engine.New(ctrl, engineConfig(cfg), logger, engine.WithRestamp())
	if err := loop.Start(ctx); err != nil {
		return err
	}
	defer loop.Stop()

	if err := dispatchPaced(ctx, loop, events, opts.speed); err != nil {
		return err
	}
	snap, err := waitSettled(ctx, loop, opts.settle)
	if err != nil {
		return err
	}
	if n := cdp.Failures(); n > 0 {
		logger.Warn("Some page updates failed.", zap.Int("failures", n))
	}
	return printJSON(cmd.OutOrStdout(), snap)
}

// dispatchPaced sends events to loop, sleeping between them so their spacing
// matches the trace timestamps divided by speed.
func dispatchPaced(ctx context.Context, loop *engine.Loop, events []schemas.PointerEvent, speed float64) error {
	if speed <= 0 {
		speed = 1
	}
	for i, ev := range events {
		if i > 0 {
			gap := (ev.TimeMs - events[i-1].TimeMs) / speed
			if gap > 0 {
				timer := time.NewTimer(time.Duration(gap * float64(time.Millisecond)))
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		if _, err := loop.Dispatch(ctx, ev); err != nil {
			return fmt.Errorf("failed to dispatch pointer event %d: %w", i, err)
		}
	}
	return nil
}

// waitSettled polls the loop until no kinetic phase is running or max elapses.
func waitSettled(ctx context.Context, loop *engine.Loop, max time.Duration) (scroll.Snapshot, error) {
	deadline := time.Now().Add(max)
	for {
		snap, err := loop.Snapshot(ctx)
		if err != nil {
			return snap, err
		}
		if in := snap.State.Inertia; in == nil || !in.Active || time.Now().After(deadline) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-time.After(settlePollInterval):
		}
	}
}
