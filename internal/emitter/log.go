package emitter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yairfalse/warden/pkg/resource"
)

// LogEmitter writes one line per outcome and a summary per pass.
type LogEmitter struct {
	logger zerolog.Logger
}

// NewLogEmitter creates a log emitter.
func NewLogEmitter(logger zerolog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the pass result.
func (e *LogEmitter) Emit(ctx context.Context, result resource.PassResult) error {
	logger := e.logger.With().Str("pass", result.Pass).Logger()

	for _, o := range result.Outcomes {
		logger.Info().
			Ctx(ctx).
			Str("resource_id", o.ResourceID).
			Str("action", string(o.Action)).
			Bool("dry_run", o.DryRun).
			Msg(o.Message)
	}

	if result.Error != nil {
		logger.Error().
			Ctx(ctx).
			Err(result.Error).
			Int("outcomes", len(result.Outcomes)).
			Dur("duration", result.Duration).
			Msg("pass failed")
		return nil
	}

	logger.Info().
		Ctx(ctx).
		Str("status", result.Status).
		Int("outcomes", len(result.Outcomes)).
		Int("mutations", mutations(result)).
		Dur("duration", result.Duration).
		Msg("pass complete")
	return nil
}

// Close is a no-op for the log emitter.
func (e *LogEmitter) Close() error {
	return nil
}

func mutations(result resource.PassResult) int {
	n := 0
	for _, o := range result.Outcomes {
		if o.Action.Mutates() {
			n++
		}
	}
	return n
}
