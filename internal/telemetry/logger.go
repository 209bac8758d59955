package telemetry

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/warden/internal/config"
)

// OTELHook adds trace and span IDs to every log entry whose event carries a
// context with a valid span.
type OTELHook struct{}

// Run implements zerolog.Hook.
func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// NewLogger builds a logger writing to w in the configured format.
func NewLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}

	switch cfg.Format {
	case config.FormatConsole:
		w = zerolog.ConsoleWriter{Out: w}
	case config.FormatJSON, "":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(OTELHook{}), nil
}

// SetupLogging configures the global logger. JSON goes to stdout and the
// console format to stderr.
func SetupLogging(cfg config.LogConfig) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var w io.Writer = os.Stdout
	if cfg.Format == config.FormatConsole {
		w = os.Stderr
	}

	logger, err := NewLogger(cfg, w)
	if err != nil {
		return err
	}
	log.Logger = logger
	return nil
}
