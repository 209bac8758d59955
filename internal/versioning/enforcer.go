// Package versioning enables object versioning on buckets matching a name prefix.
package versioning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/warden/pkg/resource"
)

// PassName identifies the enforcer in results and metrics.
const PassName = "buckets"

// DefaultPrefix is the bucket prefix used when none is configured.
const DefaultPrefix = "yasinh-"

const (
	statusNoBuckets = "No buckets found."
	statusFinished  = "Finished processing all buckets."
)

// BucketStore is the storage API the enforcer needs.
type BucketStore interface {
	ListBuckets(ctx context.Context) ([]resource.Bucket, error)
	Versioning(ctx context.Context, bucket string) (resource.VersioningStatus, error)
	EnableVersioning(ctx context.Context, bucket string) error
}

// Enforcer runs the bucket pass.
type Enforcer struct {
	store  BucketStore
	prefix string
	logger zerolog.Logger
	dryRun bool
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Enforcer) { e.logger = logger }
}

// WithDryRun reports decisions without changing any bucket.
func WithDryRun(dryRun bool) Option {
	return func(e *Enforcer) { e.dryRun = dryRun }
}

// New creates an Enforcer for buckets whose name starts with prefix.
func New(store BucketStore, prefix string, opts ...Option) *Enforcer {
	e := &Enforcer{
		store:  store,
		prefix: prefix,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the pass name.
func (e *Enforcer) Name() string {
	return PassName
}

// Prefix returns the configured bucket prefix.
func (e *Enforcer) Prefix() string {
	return e.prefix
}

// InScope reports whether the bucket is managed by this enforcer.
func (e *Enforcer) InScope(name string) bool {
	return strings.HasPrefix(name, e.prefix)
}

// Run lists buckets and enables versioning on every in-scope bucket that
// does not have it. Out-of-scope buckets are recorded as skipped without
// reading their configuration.
func (e *Enforcer) Run(ctx context.Context) (resource.PassResult, error) {
	start := time.Now()
	result := resource.PassResult{Pass: PassName}

	buckets, err := e.store.ListBuckets(ctx)
	if err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("list buckets: %w", err)
	}

	if len(buckets) == 0 {
		e.logger.Info().Msg("no buckets found")
		result.Status = statusNoBuckets
		result.Duration = time.Since(start)
		return result, nil
	}

	e.logger.Info().
		Int("buckets", len(buckets)).
		Str("prefix", e.prefix).
		Bool("dry_run", e.dryRun).
		Msg("processing buckets")

	result.Outcomes = make([]resource.Outcome, 0, len(buckets))
	for _, bucket := range buckets {
		outcome, err := e.process(ctx, bucket)
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.Status = statusFinished
	result.Duration = time.Since(start)
	return result, nil
}

func (e *Enforcer) process(ctx context.Context, bucket resource.Bucket) (resource.Outcome, error) {
	logger := e.logger.With().Str("bucket", bucket.Name).Logger()

	if !e.InScope(bucket.Name) {
		outcome := resource.Outcome{
			ResourceID: bucket.Name,
			Action:     resource.ActionSkip,
			Message:    fmt.Sprintf("Skipping bucket %s", bucket.Name),
		}
		logger.Debug().Msg(outcome.Message)
		return outcome, nil
	}

	status, err := e.store.Versioning(ctx, bucket.Name)
	if err != nil {
		return resource.Outcome{}, fmt.Errorf("get versioning for bucket %s: %w", bucket.Name, err)
	}

	d := Decide(bucket.Name, status)
	outcome := resource.Outcome{
		ResourceID: bucket.Name,
		Action:     d.Action,
		Message:    d.Reason,
		DryRun:     e.dryRun && d.Action.Mutates(),
	}
	logger = logger.With().
		Str("versioning", string(status)).
		Str("action", string(d.Action)).
		Logger()

	if outcome.DryRun {
		outcome.Message = "(dry-run) " + outcome.Message
		logger.Debug().Msg(outcome.Message)
		return outcome, nil
	}

	if d.Action == resource.ActionEnableVersioning {
		if err := e.store.EnableVersioning(ctx, bucket.Name); err != nil {
			return outcome, fmt.Errorf("enable versioning on bucket %s: %w", bucket.Name, err)
		}
	}

	logger.Debug().Msg(outcome.Message)
	return outcome, nil
}
