// Package daemon runs the handler on a fixed interval and serves metrics and
// health endpoints alongside it.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/yairfalse/warden/internal/handler"
)

const shutdownTimeout = 5 * time.Second

// Runner is one invocation of the passes.
type Runner interface {
	Handle(ctx context.Context) handler.Response
}

// Config holds daemon configuration.
type Config struct {
	Interval time.Duration
	// MetricsAddr is the listen address for /metrics and /healthz. Empty
	// disables the server.
	MetricsAddr string
}

// Daemon manages scheduled invocations.
type Daemon struct {
	runner         Runner
	interval       time.Duration
	metricsAddr    string
	metricsHandler http.Handler
	metrics        *Metrics
	logger         zerolog.Logger
	startTime      time.Time
	runCount       atomic.Int64
	lastStatus     atomic.Int64
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithMetricsHandler serves h on /metrics, typically promhttp.HandlerFor.
func WithMetricsHandler(h http.Handler) Option {
	return func(d *Daemon) { d.metricsHandler = h }
}

// WithMetrics records daemon metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Daemon) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Daemon) { d.logger = logger }
}

// New creates a new daemon.
func New(cfg Config, runner Runner, opts ...Option) (*Daemon, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("daemon: interval must be positive (got %s)", cfg.Interval)
	}

	d := &Daemon{
		runner:      runner,
		interval:    cfg.Interval,
		metricsAddr: cfg.MetricsAddr,
		logger:      log.Logger,
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.metrics == nil {
		// metrics are optional
		m, err := NewMetrics(noop.NewMeterProvider().Meter("warden.daemon"))
		if err != nil {
			return nil, err
		}
		d.metrics = m
	}
	return d, nil
}

// Run invokes the runner immediately and then on every tick until ctx is
// cancelled or the process receives SIGINT or SIGTERM. Ticks never overlap.
func (d *Daemon) Run(ctx context.Context) error {
	var g run.Group

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			d.loop(ctx)
			return nil
		}, func(error) {
			cancel()
		})
	}

	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	if d.metricsAddr != "" {
		ln, err := net.Listen("tcp", d.metricsAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", d.metricsAddr, err)
		}
		srv := &http.Server{
			Handler:           d.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Add(func() error {
			d.logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		d.logger.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Daemon) loop(ctx context.Context) {
	d.logger.Info().Dur("interval", d.interval).Msg("daemon started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Daemon) tick(ctx context.Context) {
	start := time.Now()
	resp := d.runner.Handle(ctx)

	d.runCount.Add(1)
	d.lastStatus.Store(int64(resp.StatusCode))

	status := "success"
	if resp.StatusCode != http.StatusOK {
		status = "error"
	}
	d.metrics.RecordRun(ctx, status, time.Since(start))
}

// Handler returns the HTTP handler with /metrics, /healthz and /readyz.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	if d.metricsHandler != nil {
		mux.Handle("/metrics", d.metricsHandler)
	}
	mux.HandleFunc("/healthz", d.serveHealth)
	mux.HandleFunc("/readyz", d.serveReady)
	return mux
}

// serveReady reports ready once the first invocation has completed.
func (d *Daemon) serveReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if d.runCount.Load() == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no run completed"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}

func (d *Daemon) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d.Health())
}

// Health returns daemon health status.
func (d *Daemon) Health() HealthStatus {
	return HealthStatus{
		Status:         "healthy",
		Uptime:         int64(time.Since(d.startTime).Seconds()),
		Runs:           d.runCount.Load(),
		LastStatusCode: int(d.lastStatus.Load()),
	}
}

// HealthStatus represents daemon health.
type HealthStatus struct {
	Status         string `json:"status"`
	Uptime         int64  `json:"uptime_seconds"`
	Runs           int64  `json:"runs"`
	LastStatusCode int    `json:"last_status_code,omitempty"`
}

// RunCount returns total invocations run.
func (d *Daemon) RunCount() int64 {
	return d.runCount.Load()
}
