package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/warden/internal/daemon"
)

var (
	daemonInterval    time.Duration
	daemonMetricsAddr string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run both passes on an interval",
	Long: `Run warden as a long-lived process.

The daemon runs both passes immediately and then once per interval. Ticks
never overlap.

Features:
- Prometheus metrics on /metrics
- Health checks on /healthz and /readyz
- Graceful shutdown on SIGTERM/SIGINT`,
	Example: `  warden daemon                          # Run hourly with defaults
  warden daemon --interval 15m           # Custom interval
  warden daemon --metrics-addr :9090     # Custom metrics address
  warden daemon --dry-run                # Report decisions only`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 0, "Run interval (overrides daemon.interval)")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", "", "Metrics listen address (overrides daemon.metrics_addr)")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("interval") {
		cfg.Daemon.Interval = daemonInterval
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Daemon.MetricsAddr = daemonMetricsAddr
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown failed")
		}
	}()

	metrics, err := daemon.NewMetrics(a.telemetry.Meter())
	if err != nil {
		return fmt.Errorf("create daemon metrics: %w", err)
	}

	d, err := daemon.New(
		daemon.Config{
			Interval:    cfg.Daemon.Interval,
			MetricsAddr: cfg.Daemon.MetricsAddr,
		},
		a.handler,
		daemon.WithMetrics(metrics),
		daemon.WithMetricsHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})),
	)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	return d.Run(ctx)
}
