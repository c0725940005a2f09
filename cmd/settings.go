// cmd/settings.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/store"
)

func newSettingsCmd(stores storeProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the saved scroll gains",
		Long: fmt.Sprintf(`Saved gains apply to every command that drives a controller and take
precedence over scroll.drag_gain and scroll.inertia_gain. Values are clamped
to [%.1f, %.1f].`, schemas.MinGain, schemas.MaxGain),
	}
	cmd.AddCommand(newSettingsShowCmd(stores))
	cmd.AddCommand(newSettingsSetCmd(stores))
	cmd.AddCommand(newSettingsPresetCmd(stores))
	cmd.AddCommand(newSettingsResetCmd(stores))
	return cmd
}

// withPreferences opens the store for the duration of fn.
func withPreferences(cmd *cobra.Command, stores storeProvider, fn func(prefs *store.Preferences, fallback schemas.ScrollSettings) error) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	prefs, closeStore, err := stores.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open preference store: %w", err)
	}
	defer closeStore()
	return fn(prefs, cfg.Scroll().Settings().Clamped())
}

func newSettingsShowCmd(stores storeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective gains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPreferences(cmd, stores, func(prefs *store.Preferences, fallback schemas.ScrollSettings) error {
				s, err := prefs.LoadSettings(cmd.Context(), fallback)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	}
}

func newSettingsSetCmd(stores storeProvider) *cobra.Command {
	var drag, inertia float64
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save one or both gains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("drag") && !cmd.Flags().Changed("inertia") {
				return fmt.Errorf("pass --drag and/or --inertia")
			}
			return withPreferences(cmd, stores, func(prefs *store.Preferences, fallback schemas.ScrollSettings) error {
				ctx := cmd.Context()
				s, err := prefs.LoadSettings(ctx, fallback)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("drag") {
					s.DragGain = drag
				}
				if cmd.Flags().Changed("inertia") {
					s.InertiaGain = inertia
				}
				saved, err := prefs.SaveSettings(ctx, s)
				if err != nil {
					return fmt.Errorf("failed to save gains: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), saved)
			})
		},
	}
	cmd.Flags().Float64Var(&drag, "drag", 1, "Drag gain.")
	cmd.Flags().Float64Var(&inertia, "inertia", 1, "Inertia gain.")
	return cmd
}

func newSettingsPresetCmd(stores storeProvider) *cobra.Command {
	return &cobra.Command{
		Use:       "preset NAME",
		Short:     "Save a named preset (gentle, study or default)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"gentle", "study", "default"},
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, ok := schemas.LookupPreset(args[0])
			if !ok {
				return fmt.Errorf("unknown preset %q", args[0])
			}
			return withPreferences(cmd, stores, func(prefs *store.Preferences, _ schemas.ScrollSettings) error {
				saved, err := prefs.SaveSettings(cmd.Context(), preset)
				if err != nil {
					return fmt.Errorf("failed to save gains: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), saved)
			})
		},
	}
}

func newSettingsResetCmd(stores storeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget saved gains so the configured ones apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPreferences(cmd, stores, func(prefs *store.Preferences, fallback schemas.ScrollSettings) error {
				if err := prefs.ResetSettings(cmd.Context()); err != nil {
					return fmt.Errorf("failed to reset gains: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), fallback)
			})
		},
	}
}
