// cmd/scroll.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/config"
	"github.com/xkilldash9x/scrolllab/internal/engine"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/store"
	"github.com/xkilldash9x/scrolllab/internal/surface"
	"github.com/xkilldash9x/scrolllab/internal/telemetry"
)

const recordDrainTimeout = 5 * time.Second

// scrollFlags are the technique and gain overrides shared by the commands
// that drive a controller.
type scrollFlags struct {
	technique   string
	dragGain    float64
	inertiaGain float64
}

func (f *scrollFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.technique, "technique", "t", "", "Scroll technique (I, II, III, IV). Defaults to scroll.technique.")
	cmd.Flags().Float64Var(&f.dragGain, "drag-gain", 0, "Override the drag gain.")
	cmd.Flags().Float64Var(&f.inertiaGain, "inertia-gain", 0, "Override the inertia gain.")
}

// resolve picks the technique and gains for a run. Saved gains replace the
// configured ones and explicit flags replace both.
func (f *scrollFlags) resolve(ctx context.Context, cmd *cobra.Command, cfg config.Interface, prefs *store.Preferences) (scroll.Technique, schemas.ScrollSettings, error) {
	name := cfg.Scroll().Technique
	if f.technique != "" {
		name = f.technique
	}
	technique, err := scroll.ParseTechnique(name)
	if err != nil {
		return "", schemas.ScrollSettings{}, err
	}

	settings := cfg.Scroll().Settings()
	if prefs != nil {
		if settings, err = prefs.LoadSettings(ctx, settings); err != nil {
			return "", schemas.ScrollSettings{}, fmt.Errorf("failed to load saved gains: %w", err)
		}
	}
	if cmd.Flags().Changed("drag-gain") {
		settings.DragGain = f.dragGain
	}
	if cmd.Flags().Changed("inertia-gain") {
		settings.InertiaGain = f.inertiaGain
	}
	return technique, settings.Clamped(), nil
}

// newHeadlessController builds a controller over the configured headless surface.
func newHeadlessController(cfg config.Interface, technique scroll.Technique, settings schemas.ScrollSettings, logger *zap.Logger) (*scroll.Controller, *surface.Headless) {
	sc := cfg.Surface()
	hs := surface.NewHeadless(sc.Container, sc.ContentHeight)
	ctrl := scroll.NewController(hs, technique, settings, cfg.Scroll().Tuning.ToTuning(), scroll.WithLogger(logger))
	return ctrl, hs
}

func engineConfig(cfg config.Interface) engine.Config {
	ec := cfg.Engine()
	return engine.Config{
		FrameInterval:   ec.FrameInterval,
		CommandBuffer:   ec.CommandBuffer,
		MaxSettleFrames: ec.MaxSettleFrames,
	}
}

// replaySummary is what simulate and replay print.
type replaySummary struct {
	Name          string                 `json:"name,omitempty"`
	Technique     scroll.Technique       `json:"technique"`
	Settings      schemas.ScrollSettings `json:"settings"`
	Events        int                    `json:"events"`
	FinalOffset   float64                `json:"finalOffset"`
	MaxScrollable float64                `json:"maxScrollable"`
	Transform     string                 `json:"transform"`
	Frames        int                    `json:"frames"`
	Flicks        int                    `json:"flicks"`
	Settled       bool                   `json:"settled"`
	Stops         []scroll.Event         `json:"stops"`
	BreakContact  *scroll.BreakContact   `json:"breakContact,omitempty"`
	Marker        scroll.Marker          `json:"marker"`
	Timeline      []engine.TimelinePoint `json:"timeline,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

func summarize(name string, events int, res engine.ReplayResult, withTimeline bool) replaySummary {
	s := replaySummary{
		Name:          name,
		Technique:     res.Final.Technique,
		Settings:      res.Final.Settings,
		Events:        events,
		FinalOffset:   res.Final.State.ContentOffset,
		MaxScrollable: res.Final.MaxScrollable,
		Transform:     surface.Transform(res.Final.State.ContentOffset),
		Frames:        res.Frames,
		Flicks:        res.Flicks,
		Settled:       res.Settled,
		Stops:         res.Stops,
		BreakContact:  res.Final.State.BreakContact,
		Marker:        res.Final.Marker,
	}
	if s.Stops == nil {
		s.Stops = []scroll.Event{}
	}
	if withTimeline {
		s.Timeline = res.Timeline
	}
	return s
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// startRecording attaches a telemetry recorder writing to path. The returned
// stop function drains pending events, shuts the bus down and closes the file.
func startRecording(ctx context.Context, path string, cfg config.Interface, logger *zap.Logger) (telemetry.Publisher, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create record file: %w", err)
	}
	bus := telemetry.NewBus(logger, cfg.Telemetry().BufferSize)
	rec := telemetry.NewRecorder(bus, f, logger)
	wait := rec.Start(ctx)

	stop := func() error {
		drainCtx, cancel := context.WithTimeout(context.Background(), recordDrainTimeout)
		defer cancel()
		if err := bus.Drain(drainCtx); err != nil {
			logger.Warn("Telemetry drain timed out; some events may be missing.", zap.Error(err))
		}
		bus.Shutdown()
		recErr := wait()
		if err := f.Close(); err != nil && recErr == nil {
			recErr = fmt.Errorf("failed to close record file: %w", err)
		}
		logger.Info("Telemetry recorded.", zap.String("path", path), zap.Int("events", rec.Count()))
		return recErr
	}
	return bus, stop, nil
}
