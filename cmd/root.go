// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/internal/config"
	"github.com/xkilldash9x/scrolllab/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// dependencies are the external resources commands reach through seams so
// tests can substitute them.
type dependencies struct {
	stores storeProvider
}

// NewRootCommand builds a fresh command tree wired to production dependencies.
func NewRootCommand() *cobra.Command {
	return newRootCommand(dependencies{stores: NewStoreProvider()})
}

func newRootCommand(deps dependencies) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "scrolllab",
		Short: "Scrolllab studies touch scrolling techniques.",
		Long: `Scrolllab drives a vertical scroll interaction engine with recorded or
synthetic pointer input, renders it headlessly or into a real page, and runs
the reading study sessions that compare the four scrolling techniques.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "scrolllab"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "scrolllab"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			logger := observability.InitializeLogger(cfg.Logger())
			logger.Debug("Starting scrolllab", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml or ~/.scrolllab/config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSimulateCmd(deps.stores))
	rootCmd.AddCommand(newReplayCmd(deps.stores))
	rootCmd.AddCommand(newFollowCmd(deps.stores))
	rootCmd.AddCommand(newRenderCmd(deps.stores))
	rootCmd.AddCommand(newSessionCmd(deps.stores))
	rootCmd.AddCommand(newSettingsCmd(deps.stores))
	return rootCmd
}

// Execute runs the command tree with ctx and logs any failure.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger := observability.GetLogger()
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled.")
		} else {
			logger.Error("Command execution failed", zap.Error(err))
		}
	}
	observability.Sync()
	return err
}

// initializeConfig points v at the config file and the SCROLLLAB_ environment.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".scrolllab"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SCROLLLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}
	return nil
}

// getConfigFromContext returns the config stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	return cfg, nil
}
