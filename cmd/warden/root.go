package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/warden/internal/config"
	"github.com/yairfalse/warden/internal/telemetry"
)

var (
	version = "0.1.0"

	configPath string
	dryRun     bool

	rootCmd = &cobra.Command{
		Use:   "warden",
		Short: "Hourly instance scheduler and bucket versioning enforcer",
		Long: `Warden - instance scheduling and bucket versioning

Warden stops running instances whose SchedulerStopTime tag matches the
current hour and starts stopped instances whose SchedulerStartTime tag
does. It also enables object versioning on every bucket whose name starts
with the configured prefix.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Warden {{.Version}}
`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("WARDEN_CONFIG"), "Config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Report decisions without changing any resource")
}

// loadConfig loads configuration and applies global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dryRun {
		cfg.Scheduler.DryRun = true
		cfg.Versioning.DryRun = true
	}
	return cfg, nil
}

// setup loads configuration and configures the global logger.
func setup() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := telemetry.SetupLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}
