package commands

import (
	"fmt"
	"os"

	"github.com/Phaeld/fiap-enterprise-challenge/common/logger"
	"github.com/Phaeld/fiap-enterprise-challenge/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "fleet-monitor"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Equipment fleet monitoring backend",
	Long: `fleet-monitor ingests sensor readings, confirms threshold streaks into
failures and alerts, tracks operating cycles, and serves failure predictions
built from live and historical features.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

// setup loads configuration and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	if cfgFile != "" {
		if err := os.Setenv("CONFIG_FILE", cfgFile); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, log, nil
}
