package main

import (
	"context"
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/warden/internal/config"
	"github.com/yairfalse/warden/internal/emitter"
	"github.com/yairfalse/warden/internal/handler"
	awsprovider "github.com/yairfalse/warden/internal/provider/aws"
	"github.com/yairfalse/warden/internal/scheduler"
	"github.com/yairfalse/warden/internal/telemetry"
	"github.com/yairfalse/warden/internal/versioning"
)

const (
	statusSchedulingDisabled = "Instance scheduling disabled."
	statusVersioningDisabled = "Bucket versioning disabled."
)

// app holds everything built once per process.
type app struct {
	cfg       *config.Config
	telemetry *telemetry.Provider
	registry  *promclient.Registry
	emitter   emitter.Emitter
	handler   *handler.Handler
}

// newApp wires telemetry, emitters and AWS clients into a handler. A
// Prometheus registry is created when withPrometheus is set.
func newApp(ctx context.Context, cfg *config.Config, withPrometheus bool) (*app, error) {
	a := &app{cfg: cfg}

	var opts []telemetry.Option
	if withPrometheus {
		a.registry = promclient.NewRegistry()
		opts = append(opts, telemetry.WithPrometheus(a.registry))
	}

	tp, err := telemetry.NewProvider(ctx, cfg.OTEL, opts...)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.telemetry = tp

	metrics, err := emitter.NewMetricsEmitter(tp.Meter())
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("create metrics emitter: %w", err)
	}
	a.emitter = emitter.NewMultiEmitter(emitter.NewLogEmitter(log.Logger), metrics)

	compute, storage, err := awsprovider.Connect(ctx, awsConfig(cfg.AWS))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("connect to aws: %w", err)
	}

	a.handler = handler.New(
		buildPasses(cfg, compute, storage),
		handler.WithEmitter(a.emitter),
		handler.WithTracer(tp.Tracer()),
	)

	log.Info().
		Str("region", compute.Region()).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Bool("versioning", cfg.Versioning.Enabled).
		Str("bucket_prefix", cfg.Versioning.BucketPrefix).
		Msg("warden initialized")

	return a, nil
}

// Close flushes emitters and telemetry.
func (a *app) Close(ctx context.Context) error {
	if err := a.emitter.Close(); err != nil {
		return fmt.Errorf("close emitter: %w", err)
	}
	return a.telemetry.Shutdown(ctx)
}

// buildPasses returns the instance pass followed by the bucket pass.
// Disabled passes only report their status.
func buildPasses(cfg *config.Config, compute scheduler.InstanceClient, store versioning.BucketStore) []handler.Pass {
	passes := make([]handler.Pass, 0, 2)

	if cfg.Scheduler.Enabled {
		passes = append(passes, scheduler.New(compute, scheduler.WithDryRun(cfg.Scheduler.DryRun)))
	} else {
		passes = append(passes, handler.Disabled(scheduler.PassName, statusSchedulingDisabled))
	}

	if cfg.Versioning.Enabled {
		passes = append(passes, versioning.New(store, cfg.Versioning.BucketPrefix, versioning.WithDryRun(cfg.Versioning.DryRun)))
	} else {
		passes = append(passes, handler.Disabled(versioning.PassName, statusVersioningDisabled))
	}

	return passes
}

func awsConfig(cfg config.AWSConfig) awsprovider.Config {
	return awsprovider.Config{
		Region:          cfg.Region,
		Profile:         cfg.Profile,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}
}
